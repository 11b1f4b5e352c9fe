package lead

import (
	"context"
	"errors"
	"time"
)

// ErrValidation marks malformed capture/chat input; handlers map it to 400.
var ErrValidation = errors.New("lead: invalid input")

// Repo — persistence for leads and the automation log.
type Repo interface {
	Upsert(ctx context.Context, l *Lead) (*Lead, error)
	Get(ctx context.Context, id string) (*Lead, error)

	// FindQualifyingUnprocessed returns unprocessed leads with score >= threshold
	// created within maxAge, oldest first, capped at limit. clientID "" means
	// all tenants.
	FindQualifyingUnprocessed(ctx context.Context, clientID string, threshold int, maxAge time.Duration, limit int) ([]Lead, error)

	// MarkProcessed claims the lead. Returns false if it was already claimed.
	// Safe under concurrent callers: exactly one claim wins.
	MarkProcessed(ctx context.Context, id string) (bool, error)

	AppendAutomationLog(ctx context.Context, e AutomationLogEntry) error
	ListAutomationLog(ctx context.Context, leadID string) ([]AutomationLogEntry, error)
}

// Service — chat and capture orchestration (stateless across calls; the
// caller round-trips its last-known attributes in the chat context).
type Service interface {
	Capture(ctx context.Context, in CaptureInput) (*Lead, error)
	Chat(ctx context.Context, in ChatInput) (*ChatResult, error)
}

type CaptureInput struct {
	ClientID string
	Contact  Contact
	Vehicle  Vehicle
	Service  ServicePreferences
}

type ChatInput struct {
	ClientID string
	LeadID   string // empty on the first message of a session
	Message  string
	Prior    Attributes
	Stage    Stage
}

type ChatResult struct {
	Reply string
	Lead  *Lead
}
