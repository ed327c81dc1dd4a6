// Package store holds the currently loaded KPI table for the session.
package store

import (
	"sync"

	"github.com/opskpi/backend/internal/dataset"
)

// Session is the one piece of state shared across requests: the current
// table. Replace swaps it wholesale (last write wins); readers always see
// either the old table or the new one, never a partial state.
type Session struct {
	mu    sync.RWMutex
	table *dataset.Table
}

func NewSession(initial *dataset.Table) *Session {
	return &Session{table: initial}
}

func (s *Session) Table() *dataset.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

func (s *Session) Replace(t *dataset.Table) {
	s.mu.Lock()
	s.table = t
	s.mu.Unlock()
}
