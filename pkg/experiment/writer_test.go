package experiment

import (
	"io"
	"sync"
)

// syncWriter lets concurrently running jobs share one buffer
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
