// Package errors provides structured error handling with machine-readable codes.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Session errors
	CodeSessionNotFound          Code = "SESSION_NOT_FOUND"
	CodeSessionWrongPhase        Code = "SESSION_WRONG_PHASE"
	CodeSessionMotionEmpty       Code = "SESSION_MOTION_EMPTY"
	CodeSessionAdjudicating      Code = "SESSION_ADJUDICATING"
	CodeSessionNoActiveSelection Code = "SESSION_NO_ACTIVE_SELECTION"

	// Speaker errors
	CodeSpeakerNotFound     Code = "SPEAKER_NOT_FOUND"
	CodeSpeakerEvaluating   Code = "SPEAKER_EVALUATING"
	CodeSpeakerScoreInvalid Code = "SPEAKER_SCORE_INVALID"

	// Ranking errors
	CodeRankingInvalid Code = "RANKING_INVALID"

	// Collaborator errors
	CodeCollaboratorFailure Code = "COLLABORATOR_FAILURE"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeSessionMotionEmpty,
		CodeSpeakerScoreInvalid,
		CodeRankingInvalid:
		return http.StatusBadRequest

	case CodeSessionNotFound,
		CodeSpeakerNotFound,
		CodeSessionNoActiveSelection,
		CodeNotFound:
		return http.StatusNotFound

	case CodeSessionWrongPhase,
		CodeSessionAdjudicating,
		CodeSpeakerEvaluating:
		return http.StatusConflict

	case CodeCollaboratorFailure:
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}
