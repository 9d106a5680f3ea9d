// Package storage defines persistence interfaces for debate sessions.
package storage

import (
	"context"
	"errors"

	"github.com/openpodium/podium/internal/debate/domain"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// SessionStore persists debate sessions.
//
// Implementations must return defensive copies: a session handed out by
// GetSession or ListSessions is owned by the caller, and mutating it must
// not affect the stored record until it is put back.
type SessionStore interface {
	// PutSession inserts or replaces a session by ID.
	PutSession(ctx context.Context, session domain.Session) error
	// GetSession returns the session with the given ID or ErrNotFound.
	GetSession(ctx context.Context, id string) (domain.Session, error)
	// ListSessions returns all sessions ordered by creation time, then ID.
	ListSessions(ctx context.Context) ([]domain.Session, error)
	// DeleteSession removes the session with the given ID or returns ErrNotFound.
	DeleteSession(ctx context.Context, id string) error
}
