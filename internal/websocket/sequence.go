package websocket

import (
	"sync"
	"sync/atomic"
)

// sequencer hands out a per-symbol, strictly increasing message number so
// clients can detect gaps after a drop.
type sequencer struct {
	m sync.Map // map[string]*atomic.Uint64
}

func (s *sequencer) next(symbol string) uint64 {
	v, _ := s.m.LoadOrStore(symbol, new(atomic.Uint64))
	return v.(*atomic.Uint64).Add(1)
}
