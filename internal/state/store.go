// Package state holds the latest game status for the UI's header widgets.
package state

import (
	"sync"
	"time"

	"github.com/embermud/ember/internal/render"
)

// Status represents the latest widget data available to the UI.
type Status struct {
	Vitals    map[string]int // health, mana, stamina, spirit → percent
	Roundtime time.Time      // zero when no roundtime pending
	CastTime  time.Time
	Prompt    string
	LeftHand  string
	RightHand string
	Spell     string
	RoomName  string
	Exits     string

	Connected   bool
	LastError   string // most recent transport fault, cleared on success
	LastUpdated time.Time
}

// InRoundtime reports whether a roundtime is still running at now.
func (s Status) InRoundtime(now time.Time) bool {
	return !s.Roundtime.IsZero() && s.Roundtime.After(now)
}

// RoundtimeLeft returns the remaining roundtime, floored at zero.
func (s Status) RoundtimeLeft(now time.Time) time.Duration {
	if !s.InRoundtime(now) {
		return 0
	}
	return s.Roundtime.Sub(now)
}

// Store coordinates concurrent updates to the status snapshot.
type Store struct {
	mu     sync.RWMutex
	status Status
}

// Apply folds a batch of extracted updates into the snapshot.
func (s *Store) Apply(updates []render.StatusUpdate) {
	if len(updates) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range updates {
		switch u.Kind {
		case render.StatusVital:
			if s.status.Vitals == nil {
				s.status.Vitals = make(map[string]int)
			}
			s.status.Vitals[u.Key] = u.Percent
		case render.StatusRoundtime:
			s.status.Roundtime = u.Until
		case render.StatusCastTime:
			s.status.CastTime = u.Until
		case render.StatusPrompt:
			s.status.Prompt = u.Value
		case render.StatusLeftHand:
			s.status.LeftHand = u.Value
		case render.StatusRightHand:
			s.status.RightHand = u.Value
		case render.StatusSpell:
			s.status.Spell = u.Value
		case render.StatusRoomName:
			s.status.RoomName = u.Value
		case render.StatusCompass:
			s.status.Exits = u.Value
		}
	}
	s.status.LastUpdated = time.Now()
}

// SetConnected records the transport state.
func (s *Store) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Connected = connected
	s.status.LastUpdated = time.Now()
}

// SetError records the latest transport fault. A nil err clears it.
func (s *Store) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.status.LastError = ""
	} else {
		s.status.LastError = err.Error()
	}
	s.status.LastUpdated = time.Now()
}

// Snapshot returns a copy of the current status.
func (s *Store) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.status
	if s.status.Vitals != nil {
		snap.Vitals = make(map[string]int, len(s.status.Vitals))
		for k, v := range s.status.Vitals {
			snap.Vitals[k] = v
		}
	}
	return snap
}
