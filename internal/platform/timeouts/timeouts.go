// Package timeouts defines shared timeout constants used across the server.
// Centralizing these values prevents drift between layers and makes the
// durations discoverable.
package timeouts

import "time"

// CollaboratorCall caps the time allowed for a single external AI call
// (motion analysis, speech evaluation, or team ranking).
const CollaboratorCall = 60 * time.Second

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
