// Package ai defines the external collaborators the debate core delegates
// to: motion analysis, speech evaluation, and team ranking. The core treats
// all three as opaque asynchronous services; any failure, transient or
// permanent, means the attempted state transition does not happen.
package ai

import (
	"context"

	"github.com/openpodium/podium/internal/debate/domain"
)

// EvaluateSpeechRequest carries one captured speech for evaluation.
// Audio and AudioRef are opaque to the core and forwarded untouched.
type EvaluateSpeechRequest struct {
	Audio         []byte
	AudioRef      string
	Role          domain.Role
	Motion        string
	MotionContext domain.MotionContext
}

// SpeechEvaluation is the evaluator's verdict on a single speech.
type SpeechEvaluation struct {
	Transcription string
	Score         float64
	Feedback      string
}

// RankTeamsRequest carries the full speaker snapshot for final adjudication.
type RankTeamsRequest struct {
	Speakers      []domain.Speaker
	Motion        string
	MotionContext domain.MotionContext
}

// Adjudication is the ranker's ordered verdict plus the overall reasoning.
type Adjudication struct {
	Rankings []domain.RankedTeam
	Summary  string
}

// MotionAnalyzer derives language, judging criteria, and background for a motion.
type MotionAnalyzer interface {
	AnalyzeMotion(ctx context.Context, motion string) (domain.MotionContext, error)
}

// SpeechEvaluator transcribes and scores one captured speech.
type SpeechEvaluator interface {
	EvaluateSpeech(ctx context.Context, req EvaluateSpeechRequest) (SpeechEvaluation, error)
}

// TeamRanker produces the final four-team ranking with reasoning.
type TeamRanker interface {
	RankTeams(ctx context.Context, req RankTeamsRequest) (Adjudication, error)
}

// Collaborators bundles the three external services the session machine uses.
type Collaborators interface {
	MotionAnalyzer
	SpeechEvaluator
	TeamRanker
}
