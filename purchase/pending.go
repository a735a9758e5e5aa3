package purchase

import (
	"sync"
	"time"
)

// Pending is an outstanding request waiting for the scripting layer.
// T is the value the waiting caller is resumed with.
type Pending[T any] struct {
	ID        string
	Kind      Kind
	Request   *Request
	CreatedAt time.Time
	resume    chan T
}

func newPending[T any](id string, kind Kind, request *Request, createdAt time.Time) *Pending[T] {
	return &Pending[T]{ID: id, Kind: kind, Request: request, CreatedAt: createdAt, resume: make(chan T, 1)}
}

// Resume delivers the value; only the party that removed the entry calls it.
func (p *Pending[T]) Resume(value T) {
	p.resume <- value
}

// store is a concurrency-safe correlation table for one request kind
type store[T any] struct {
	mu   sync.Mutex
	byID map[string]*Pending[T]
}

func newStore[T any]() *store[T] {
	return &store[T]{byID: make(map[string]*Pending[T])}
}

func (s *store[T]) Put(p *Pending[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[p.ID] = p
}

// Replace removes every entry and stores p in one step, returning the removed entries
func (s *store[T]) Replace(p *Pending[T]) []*Pending[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]*Pending[T], 0, len(s.byID))
	for id, orphan := range s.byID {
		ret = append(ret, orphan)
		delete(s.byID, id)
	}
	s.byID[p.ID] = p
	return ret
}

// Take removes and returns the entry for id
func (s *store[T]) Take(id string) (*Pending[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if ok {
		delete(s.byID, id)
	}
	return p, ok
}

// TakeOnly removes the entry when exactly one is outstanding
func (s *store[T]) TakeOnly() (*Pending[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.byID) != 1 {
		return nil, false
	}
	for id, p := range s.byID {
		delete(s.byID, id)
		return p, true
	}
	return nil, false
}

// TakeAll removes every entry
func (s *store[T]) TakeAll() []*Pending[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]*Pending[T], 0, len(s.byID))
	for id, p := range s.byID {
		ret = append(ret, p)
		delete(s.byID, id)
	}
	return ret
}

func (s *store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
