// Package service implements the debate session orchestration core: the
// session collection, the phase state machine, the timer scheduling loop,
// and the sequencing of external collaborator calls.
package service

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/openpodium/podium/internal/debate/ai"
	"github.com/openpodium/podium/internal/debate/domain"
	"github.com/openpodium/podium/internal/debate/timer"
	"github.com/openpodium/podium/internal/platform/errors"
	"github.com/openpodium/podium/internal/platform/id"
	"github.com/openpodium/podium/internal/storage"
)

// DefaultTickInterval is how often the timer loop advances running countdowns.
const DefaultTickInterval = time.Second

// Service coordinates debate sessions. All session mutations are serialized
// through a single mutex; the mutex is never held across a collaborator
// call, so timers keep ticking and other sessions stay responsive while a
// network call is in flight.
type Service struct {
	store         storage.SessionStore
	collaborators ai.Collaborators

	now          func() time.Time
	newID        func() (string, error)
	tickInterval time.Duration
	notify       func(sessionID string)
	tracer       trace.Tracer

	mu       sync.Mutex
	activeID string
	timers   map[string]*sessionTimers
	// evaluating tracks in-flight speech evaluations per session so a
	// second submission for the same speaker is rejected instead of racing.
	evaluating map[string]map[string]bool
	// epochs invalidate in-flight adjudications: a rollback or deletion
	// bumps the epoch so a late success is dropped, never re-applied.
	epochs map[string]uint64
}

// sessionTimers holds the live countdowns for one session: the prep clock
// plus one speech clock per speaker, created lazily.
type sessionTimers struct {
	prep   *timer.Countdown
	speech map[string]*timer.Countdown
}

// Option customizes a Service.
type Option func(*Service)

// WithClock injects the time source used by all countdowns.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator injects the ID source for new sessions and speakers.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(s *Service) { s.newID = newID }
}

// WithTickInterval sets how often RunTimerLoop advances running countdowns.
func WithTickInterval(interval time.Duration) Option {
	return func(s *Service) { s.tickInterval = interval }
}

// WithNotify registers a callback invoked after every observable session
// change, including deletion. Callbacks run outside the service mutex.
func WithNotify(notify func(sessionID string)) Option {
	return func(s *Service) { s.notify = notify }
}

// New creates a Service over the given store and collaborators.
func New(store storage.SessionStore, collaborators ai.Collaborators, opts ...Option) *Service {
	s := &Service{
		store:         store,
		collaborators: collaborators,
		now:           time.Now,
		newID:         id.NewID,
		tickInterval:  DefaultTickInterval,
		tracer:        otel.Tracer("github.com/openpodium/podium/internal/debate/service"),
		timers:        make(map[string]*sessionTimers),
		evaluating:    make(map[string]map[string]bool),
		epochs:        make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a new session in setup phase with a fresh roster.
func (s *Service) CreateSession(ctx context.Context, title string) (domain.Session, error) {
	session, err := domain.CreateSession(domain.CreateSessionInput{Title: title}, s.now, s.newID)
	if err != nil {
		return domain.Session{}, errors.Wrap(errors.CodeUnknown, "create session", err)
	}

	s.mu.Lock()
	if err := s.store.PutSession(ctx, session); err != nil {
		s.mu.Unlock()
		return domain.Session{}, errors.Wrap(errors.CodeUnknown, "store session", err)
	}
	s.mu.Unlock()

	s.notifyChange(session.ID)
	return session, nil
}

// GetSession returns the session with the given ID.
func (s *Service) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx, sessionID)
}

// ListSessions returns all sessions ordered by creation time.
func (s *Service) ListSessions(ctx context.Context) ([]domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnknown, "list sessions", err)
	}
	return sessions, nil
}

// DeleteSession removes a session along with its timers and any active
// selection pointing at it. An in-flight adjudication for the session is
// invalidated rather than awaited.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	err := s.store.DeleteSession(ctx, sessionID)
	if err == storage.ErrNotFound {
		s.mu.Unlock()
		return errors.New(errors.CodeSessionNotFound, "session not found")
	}
	if err != nil {
		s.mu.Unlock()
		return errors.Wrap(errors.CodeUnknown, "delete session", err)
	}
	delete(s.timers, sessionID)
	delete(s.evaluating, sessionID)
	s.epochs[sessionID]++
	if s.activeID == sessionID {
		s.activeID = ""
	}
	s.mu.Unlock()

	s.notifyChange(sessionID)
	return nil
}

// SelectSession marks a session as the active one for user interaction.
func (s *Service) SelectSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.loadLocked(ctx, sessionID); err != nil {
		return err
	}
	s.activeID = sessionID
	return nil
}

// ActiveSession returns the currently selected session.
func (s *Service) ActiveSession(ctx context.Context) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == "" {
		return domain.Session{}, errors.New(errors.CodeSessionNoActiveSelection, "no active session selected")
	}
	return s.loadLocked(ctx, s.activeID)
}

// RenameSpeaker updates a speaker's display name. Allowed in any phase.
func (s *Service) RenameSpeaker(ctx context.Context, sessionID, speakerID, name string) (domain.Session, error) {
	s.mu.Lock()
	session, err := s.loadLocked(ctx, sessionID)
	if err != nil {
		s.mu.Unlock()
		return domain.Session{}, err
	}
	if err := domain.ApplySpeakerPatch(session.Speakers, speakerID, domain.SpeakerPatch{Name: &name}); err != nil {
		s.mu.Unlock()
		return domain.Session{}, speakerPatchError(err)
	}
	if err := s.putLocked(ctx, session); err != nil {
		s.mu.Unlock()
		return domain.Session{}, err
	}
	s.mu.Unlock()

	s.notifyChange(sessionID)
	return session, nil
}

// loadLocked fetches a session, mapping storage misses to the domain code.
// Callers must hold s.mu.
func (s *Service) loadLocked(ctx context.Context, sessionID string) (domain.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err == storage.ErrNotFound {
		return domain.Session{}, errors.New(errors.CodeSessionNotFound, "session not found")
	}
	if err != nil {
		return domain.Session{}, errors.Wrap(errors.CodeUnknown, "load session", err)
	}
	return session, nil
}

// putLocked writes a session back to the store. Callers must hold s.mu.
func (s *Service) putLocked(ctx context.Context, session domain.Session) error {
	if err := s.store.PutSession(ctx, session); err != nil {
		return errors.Wrap(errors.CodeUnknown, "store session", err)
	}
	return nil
}

func (s *Service) notifyChange(sessionID string) {
	if s.notify != nil {
		s.notify(sessionID)
	}
}

func speakerPatchError(err error) error {
	switch {
	case errors.Is(err, domain.ErrSpeakerNotFound):
		return errors.New(errors.CodeSpeakerNotFound, "speaker not found")
	case errors.Is(err, domain.ErrScoreOutOfRange):
		return errors.New(errors.CodeSpeakerScoreInvalid, "score is out of range")
	default:
		return errors.Wrap(errors.CodeUnknown, "apply speaker update", err)
	}
}
