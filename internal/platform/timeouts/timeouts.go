// Package timeouts defines shared timeout constants used across services.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long a server waits for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second

// ScoreRequest caps a single call to the scoring collaborator.
const ScoreRequest = 20 * time.Second

// EmailSend caps a single call to the email collaborator.
const EmailSend = 15 * time.Second

// HTTPClient caps outbound HTTP requests that carry no tighter deadline.
const HTTPClient = 30 * time.Second
