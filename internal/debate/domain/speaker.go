package domain

import (
	"errors"
	"fmt"
)

// DefaultSpeechSeconds is the fixed speech duration: 7 minutes per speaker.
const DefaultSpeechSeconds = 420

// Score bounds for a single speech evaluation.
const (
	MinScore = 0
	MaxScore = 20
)

var (
	// ErrSpeakerNotFound indicates no speaker matches the given ID.
	ErrSpeakerNotFound = errors.New("speaker not found")
	// ErrScoreOutOfRange indicates a score outside [0, 20].
	ErrScoreOutOfRange = errors.New("score is out of range")
)

// Speaker is one of the eight fixed slots in a session.
//
// Role and Team are assigned at creation from the canonical roster and are
// immutable for the life of the session; SpeakerPatch deliberately has no
// fields for them. Transcription, Score, and Feedback are meaningful only
// while Completed is true.
type Speaker struct {
	ID   string
	Role Role
	Team Team
	Name string

	Completed          bool
	SpeechSecondsLeft  int
	SpeechTimerRunning bool

	Transcription string
	Score         float64
	Feedback      string
	// AudioRef is an opaque reference to captured audio owned by the
	// capture layer; the core never inspects it.
	AudioRef string
}

// NewSpeakers builds a fresh, independently-owned speaker set from the
// canonical roster, with default timer state and generated IDs.
func NewSpeakers(idGenerator func() (string, error)) ([]Speaker, error) {
	roster := CanonicalRoster()
	speakers := make([]Speaker, 0, len(roster))
	for _, slot := range roster {
		speakerID, err := idGenerator()
		if err != nil {
			return nil, fmt.Errorf("generate speaker id: %w", err)
		}
		speakers = append(speakers, Speaker{
			ID:                speakerID,
			Role:              slot.Role,
			Team:              slot.Team,
			Name:              slot.Label,
			SpeechSecondsLeft: DefaultSpeechSeconds,
		})
	}
	return speakers, nil
}

// SpeakerPatch is the typed partial update applied through ApplySpeakerPatch.
// Nil fields are left untouched. Identity fields (ID, Role, Team) are not
// representable here, which keeps them immutable by construction.
type SpeakerPatch struct {
	Name               *string
	Completed          *bool
	SpeechSecondsLeft  *int
	SpeechTimerRunning *bool
	Transcription      *string
	Score              *float64
	Feedback           *string
	AudioRef           *string
}

// ApplySpeakerPatch merges patch into exactly the speaker matching speakerID,
// leaving all others untouched. It is the only mutation primitive for
// speaker state.
func ApplySpeakerPatch(speakers []Speaker, speakerID string, patch SpeakerPatch) error {
	idx := -1
	for i := range speakers {
		if speakers[i].ID == speakerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrSpeakerNotFound
	}

	if patch.Score != nil && (*patch.Score < MinScore || *patch.Score > MaxScore) {
		return ErrScoreOutOfRange
	}

	sp := &speakers[idx]
	if patch.Name != nil {
		sp.Name = *patch.Name
	}
	if patch.Completed != nil {
		sp.Completed = *patch.Completed
	}
	if patch.SpeechSecondsLeft != nil {
		seconds := *patch.SpeechSecondsLeft
		if seconds < 0 {
			seconds = 0
		}
		sp.SpeechSecondsLeft = seconds
	}
	if patch.SpeechTimerRunning != nil {
		sp.SpeechTimerRunning = *patch.SpeechTimerRunning
	}
	if patch.Transcription != nil {
		sp.Transcription = *patch.Transcription
	}
	if patch.Score != nil {
		sp.Score = *patch.Score
	}
	if patch.Feedback != nil {
		sp.Feedback = *patch.Feedback
	}
	if patch.AudioRef != nil {
		sp.AudioRef = *patch.AudioRef
	}
	return nil
}
