// Package catalog holds the registry of satellites the viewer can track:
// stable ids mapped to NORAD catalog numbers and optional pinned TLE sets.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/orbitview/model"
)

// EventType indicates what kind of change happened in the catalog.
type EventType int

const (
	EventSatelliteAdded EventType = iota
	EventTLEUpdated
)

// Event is emitted to subscribers when the catalog changes.
type Event struct {
	Type      EventType
	Satellite model.Satellite
}

// Store is an in-memory, thread-safe satellite registry.
type Store struct {
	mu sync.RWMutex

	satellites map[string]model.Satellite

	subs    map[uint64]func(Event)
	nextSub uint64
}

// NewStore constructs an empty registry.
func NewStore() *Store {
	return &Store{
		satellites: make(map[string]model.Satellite),
		subs:       make(map[uint64]func(Event)),
	}
}

// Add registers a new satellite. It returns an error if the ID already exists
// or is empty.
func (s *Store) Add(sat model.Satellite) error {
	if sat.ID == "" {
		return fmt.Errorf("satellite id must not be empty")
	}
	s.mu.Lock()
	if _, exists := s.satellites[sat.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("satellite with ID %q already exists", sat.ID)
	}
	s.satellites[sat.ID] = sat
	event := Event{Type: EventSatelliteAdded, Satellite: sat}
	subs := s.subscribersLocked()
	s.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// Get returns the satellite with the given ID.
func (s *Store) Get(id string) (model.Satellite, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sat, ok := s.satellites[id]
	return sat, ok
}

// List returns a snapshot of all satellites ordered by ID.
func (s *Store) List() []model.Satellite {
	s.mu.RLock()
	res := make([]model.Satellite, 0, len(s.satellites))
	for _, sat := range s.satellites {
		res = append(res, sat)
	}
	s.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Len returns the number of registered satellites.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.satellites)
}

// UpdateTLE pins a fresh element set on a satellite and notifies subscribers.
func (s *Store) UpdateTLE(id, tle1, tle2 string) error {
	s.mu.Lock()
	sat, ok := s.satellites[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("satellite with ID %q not found", id)
	}
	sat.TLE1 = tle1
	sat.TLE2 = tle2
	s.satellites[id] = sat
	event := Event{Type: EventTLEUpdated, Satellite: sat}
	subs := s.subscribersLocked()
	s.mu.Unlock()

	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// Subscribe registers a callback for catalog events. It returns an
// unsubscribe function; callbacks are keyed by id so subscribers can
// unsubscribe in any order.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// subscribersLocked snapshots the callbacks in subscription order. Callers
// hold s.mu.
func (s *Store) subscribersLocked() []func(Event) {
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	subs := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	return subs
}
