// internal/telegram/scanner.go
package telegram

// Match describes the response expected for the request in flight.
type Match struct {
	Sender   byte
	Receiver byte
	Register byte
}

// Scanner frames an unaligned byte stream.
//
// The bus is shared, so bytes from other participants arrive interleaved
// with our response. Scanner keeps a 6-byte sliding window and reports a
// hit only when start byte, addresses, register and checksum all line up.
// A checksum failure is not an error: the window simply slides on.
type Scanner struct {
	match  Match
	window [Size]byte
	seen   int
}

func NewScanner(m Match) *Scanner {
	return &Scanner{match: m}
}

// Feed pushes one byte into the window. ok is true when the window holds a
// frame matching the expectation; value is then its payload byte.
func (s *Scanner) Feed(b byte) (value byte, ok bool) {
	copy(s.window[:], s.window[1:])
	s.window[Size-1] = b
	if s.seen < Size {
		s.seen++
	}
	if s.seen < Size || s.window[0] != Start {
		return 0, false
	}

	w := s.window
	if w[1] != s.match.Sender || w[2] != s.match.Receiver || w[3] != s.match.Register {
		return 0, false
	}
	if w[5] != Checksum(w[:]) {
		return 0, false
	}
	return w[4], true
}

// Window returns the current window contents, oldest byte first.
func (s *Scanner) Window() [Size]byte {
	return s.window
}

// Reset clears the window for reuse with a new expectation.
func (s *Scanner) Reset(m Match) {
	s.match = m
	s.window = [Size]byte{}
	s.seen = 0
}
