package led

import (
	"sync"

	"github.com/rs/zerolog"
)

// Sim records every frame it is given, useful for headless runs and tests.
type Sim struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool

	// Log, when set, gets a one line summary per frame.
	Log *zerolog.Logger
	// Fail, when set, is returned by Write instead of recording.
	Fail error
}

func (s *Sim) Write(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.Fail != nil {
		return s.Fail
	}
	s.frames = append(s.frames, append([]byte(nil), frame...))
	if s.Log != nil {
		sum := 0
		for _, b := range frame {
			sum += int(b)
		}
		avg := 0.0
		if len(frame) > 0 {
			avg = float64(sum) / float64(len(frame))
		}
		s.Log.Debug().Int("frame", len(s.frames)).Int("bytes", len(frame)).Float64("avg", avg).Msg("sim frame")
	}
	return nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Frames returns copies of the recorded frames.
func (s *Sim) Frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.frames))
	for i, f := range s.frames {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

func (s *Sim) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
