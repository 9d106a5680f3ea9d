package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultPrepSeconds is the fixed preparation duration: 15 minutes.
const DefaultPrepSeconds = 900

// Criteria count bounds for a motion context.
const (
	minMotionCriteria = 3
	maxMotionCriteria = 5
)

var (
	// ErrEmptyMotion indicates a motion with no text.
	ErrEmptyMotion = errors.New("motion is required")
	// ErrMotionContextLanguage indicates a motion context without a detected language.
	ErrMotionContextLanguage = errors.New("motion context language is required")
	// ErrMotionContextCriteria indicates a criteria list outside the 3-5 range.
	ErrMotionContextCriteria = errors.New("motion context needs 3 to 5 criteria")
)

// MotionContext is externally derived background for a motion. It is
// immutable once attached to a session and never shared across sessions.
type MotionContext struct {
	Language   string
	Criteria   []string
	Background string
}

// NormalizeMotionContext trims and validates an analyzer-produced context.
func NormalizeMotionContext(mc MotionContext) (MotionContext, error) {
	mc.Language = strings.TrimSpace(mc.Language)
	if mc.Language == "" {
		return MotionContext{}, ErrMotionContextLanguage
	}

	criteria := make([]string, 0, len(mc.Criteria))
	for _, c := range mc.Criteria {
		c = strings.TrimSpace(c)
		if c != "" {
			criteria = append(criteria, c)
		}
	}
	if len(criteria) < minMotionCriteria || len(criteria) > maxMotionCriteria {
		return MotionContext{}, ErrMotionContextCriteria
	}
	mc.Criteria = criteria
	mc.Background = strings.TrimSpace(mc.Background)
	return mc, nil
}

func (mc MotionContext) clone() MotionContext {
	out := mc
	out.Criteria = append([]string(nil), mc.Criteria...)
	return out
}

// Session is a single debate event.
type Session struct {
	ID        string
	Title     string
	CreatedAt time.Time

	Motion        string
	MotionContext *MotionContext

	Phase            Phase
	PrepSecondsLeft  int
	PrepTimerRunning bool
	Adjudicating     bool

	// Speakers always holds exactly eight entries in speaking order.
	Speakers []Speaker

	// FinalRankings and Adjudication are nil/empty until the session
	// reaches results.
	FinalRankings []TeamResult
	Adjudication  string
}

// CreateSessionInput describes the metadata needed to create a session.
type CreateSessionInput struct {
	Title string
}

// CreateSession creates a new session in setup phase with a fresh roster
// copied from the canonical template.
func CreateSession(input CreateSessionInput, now func() time.Time, idGenerator func() (string, error)) (Session, error) {
	if now == nil {
		now = time.Now
	}

	sessionID, err := idGenerator()
	if err != nil {
		return Session{}, fmt.Errorf("generate session id: %w", err)
	}
	speakers, err := NewSpeakers(idGenerator)
	if err != nil {
		return Session{}, err
	}

	return Session{
		ID:              sessionID,
		Title:           strings.TrimSpace(input.Title),
		CreatedAt:       now().UTC(),
		Phase:           PhaseSetup,
		PrepSecondsLeft: DefaultPrepSeconds,
		Speakers:        speakers,
	}, nil
}

// Clone returns a deep copy of the session. Mutating the copy never affects
// the original: speakers, criteria, and rankings are all duplicated.
func (s Session) Clone() Session {
	out := s
	out.Speakers = append([]Speaker(nil), s.Speakers...)
	if s.MotionContext != nil {
		mc := s.MotionContext.clone()
		out.MotionContext = &mc
	}
	if s.FinalRankings != nil {
		out.FinalRankings = append([]TeamResult(nil), s.FinalRankings...)
	}
	return out
}

// SpeakerByID returns a pointer into the session's speaker array, or nil.
func (s *Session) SpeakerByID(speakerID string) *Speaker {
	for i := range s.Speakers {
		if s.Speakers[i].ID == speakerID {
			return &s.Speakers[i]
		}
	}
	return nil
}

// CompletedSpeakers counts speakers with an attached evaluation.
func (s Session) CompletedSpeakers() int {
	count := 0
	for _, sp := range s.Speakers {
		if sp.Completed {
			count++
		}
	}
	return count
}
