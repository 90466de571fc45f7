// Package competition holds the process-local state shared by the competition
// services: the posting flag, per-user submission cooldowns, and pending rating pairs.
package competition

import (
	"math"
	"sync"
	"time"

	"potd_engine/internal/common"
	"potd_engine/internal/domain/model"
)

// CooldownBase is the growth factor of the per-user submission cooldown.
const CooldownBase = 1.75

type cooldown struct {
	count int
	until time.Time
}

type Session struct {
	mu        sync.Mutex
	posting   bool
	cooldowns map[int64]cooldown
	pending   map[int64]model.PendingPair
	now       func() time.Time
}

func NewSession() *Session {
	return NewSessionWithClock(time.Now)
}

func NewSessionWithClock(now func() time.Time) *Session {
	return &Session{
		cooldowns: make(map[int64]cooldown),
		pending:   make(map[int64]model.PendingPair),
		now:       now,
	}
}

func (s *Session) Now() time.Time {
	return s.now()
}

// TryBeginPosting flips the posting flag on. It reports false if it was already on.
func (s *Session) TryBeginPosting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.posting {
		return false
	}
	s.posting = true
	return true
}

func (s *Session) EndPosting() {
	s.mu.Lock()
	s.posting = false
	s.mu.Unlock()
}

func (s *Session) IsPosting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posting
}

// CheckCooldown returns a *common.CooldownError while the user must wait.
func (s *Session) CheckCooldown(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cd, ok := s.cooldowns[userID]
	if !ok {
		return nil
	}
	if wait := cd.until.Sub(s.now()); wait > 0 {
		return &common.CooldownError{RetryAfter: wait.Seconds()}
	}
	return nil
}

// BumpCooldown records one more official submission: the n-th one blocks for 1.75^n seconds.
func (s *Session) BumpCooldown(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cd := s.cooldowns[userID]
	cd.count++
	wait := time.Duration(math.Pow(CooldownBase, float64(cd.count)) * float64(time.Second))
	cd.until = s.now().Add(wait)
	s.cooldowns[userID] = cd
}

func (s *Session) ClearCooldowns() {
	s.mu.Lock()
	s.cooldowns = make(map[int64]cooldown)
	s.mu.Unlock()
}

func (s *Session) PendingPair(userID int64) (model.PendingPair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[userID]
	return p, ok
}

// SetPendingPair stores a pair unless the user already has one.
func (s *Session) SetPendingPair(userID int64, pair model.PendingPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[userID]; ok {
		return common.ErrJudgmentPending
	}
	s.pending[userID] = pair
	return nil
}

// ClearPendingPair reports whether a pair was removed.
func (s *Session) ClearPendingPair(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[userID]
	delete(s.pending, userID)
	return ok
}
