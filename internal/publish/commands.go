// internal/publish/commands.go
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	nats "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Writer is the part of the poller commands drive.
type Writer interface {
	Write(ctx context.Context, name string, value any) bool
	TurnOn(ctx context.Context, name string) bool
	TurnOff(ctx context.Context, name string) bool
}

// Command is a write request received on the command subject.
// Action is "set" (default), "on" or "off"; Value is only used by "set".
type Command struct {
	Variable string `json:"variable"`
	Action   string `json:"action"`
	Value    any    `json:"value"`
}

type Reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// DecodeCommand parses a command. Integral JSON numbers become int64 so
// they pass integer validation.
func DecodeCommand(data []byte) (Command, error) {
	var c Command
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&c); err != nil {
		return Command{}, fmt.Errorf("publish: bad command: %w", err)
	}
	if c.Variable == "" {
		return Command{}, fmt.Errorf("publish: command has no variable")
	}
	if n, ok := c.Value.(json.Number); ok {
		i, err := n.Int64()
		if err != nil {
			return Command{}, fmt.Errorf("publish: %q: value %s is not an integer", c.Variable, n)
		}
		c.Value = i
	}
	return c, nil
}

// Execute runs one command against w.
func Execute(ctx context.Context, w Writer, c Command) Reply {
	var ok bool
	switch c.Action {
	case "", "set":
		ok = w.Write(ctx, c.Variable, c.Value)
	case "on":
		ok = w.TurnOn(ctx, c.Variable)
	case "off":
		ok = w.TurnOff(ctx, c.Variable)
	default:
		return Reply{Error: fmt.Sprintf("unknown action %q", c.Action)}
	}
	if !ok {
		return Reply{Error: "write failed"}
	}
	return Reply{OK: true}
}

// handle decodes, executes and encodes the reply for one request.
func handle(ctx context.Context, w Writer, data []byte) []byte {
	var r Reply
	if c, err := DecodeCommand(data); err != nil {
		r.Error = err.Error()
	} else {
		r = Execute(ctx, w, c)
	}
	out, _ := json.Marshal(r)
	return out
}

// ServeCommands answers write requests on subject until ctx is done.
// Requests are handled one at a time on the subscription goroutine.
func ServeCommands(ctx context.Context, nc *nats.Conn, subject string, w Writer, log zerolog.Logger) (*nats.Subscription, error) {
	log = log.With().Str("component", "commands").Logger()
	return nc.Subscribe(subject, func(m *nats.Msg) {
		reply := handle(ctx, w, m.Data)
		log.Info().Str("request", string(m.Data)).Str("reply", string(reply)).Msg("command")
		if m.Reply == "" {
			return
		}
		if err := m.Respond(reply); err != nil {
			log.Warn().Err(err).Msg("unable to reply")
		}
	})
}
