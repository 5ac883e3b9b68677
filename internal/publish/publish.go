// internal/publish/publish.go

// Package publish forwards published snapshots to a NATS subject as JSON.
package publish

import (
	"encoding/json"
	"errors"
	"time"

	nats "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tamzrod/vallox-bridge/internal/poller"
)

// Publisher is the part of *nats.Conn used here.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Message is the JSON document sent per result.
type Message struct {
	Unit    string         `json:"unit"`
	At      time.Time      `json:"at"`
	Stale   bool           `json:"stale"`
	Error   string         `json:"error,omitempty"`
	Pending int            `json:"pending"`
	Written string         `json:"written,omitempty"`
	Values  map[string]any `json:"values"`
}

type Snapshots struct {
	pub     Publisher
	subject string
	log     zerolog.Logger
}

func New(pub Publisher, subject string, log zerolog.Logger) (*Snapshots, error) {
	if pub == nil {
		return nil, errors.New("publish: publisher required")
	}
	if subject == "" {
		return nil, errors.New("publish: subject required")
	}
	return &Snapshots{
		pub:     pub,
		subject: subject,
		log:     log.With().Str("component", "publish").Logger(),
	}, nil
}

// Connect dials NATS and keeps reconnecting for the life of the process.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("vallox-bridge"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

func (s *Snapshots) Publish(res poller.PollResult) error {
	m := Message{
		Unit:    res.UnitID,
		At:      res.At,
		Stale:   res.Stale,
		Pending: res.Pending,
		Written: res.Written,
		Values:  res.Snapshot,
	}
	if res.Err != nil {
		m.Error = res.Err.Error()
	}

	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.pub.Publish(s.subject, data)
}

// Observe publishes and logs failures; it is meant to be a poller subscriber.
func (s *Snapshots) Observe(res poller.PollResult) {
	if err := s.Publish(res); err != nil {
		s.log.Warn().Err(err).Str("subject", s.subject).Msg("unable to publish snapshot")
	}
}
