package lead

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tintbot/tintbot/internal/metrics"
)

// Extractor mirrors intent.Extractor; declared here so the service depends
// on behavior, not the intent package.
type Extractor interface {
	Extract(ctx context.Context, message string, prior Attributes) (string, Delta)
}

type service struct {
	repo      Repo
	extractor Extractor
	backend   string // metrics label: "rules" or "openai"
	log       *zap.Logger
}

func NewService(repo Repo, extractor Extractor, backend string, log *zap.Logger) Service {
	return &service{repo: repo, extractor: extractor, backend: backend, log: log}
}

// Capture creates or updates a lead from form input. Downstream automation
// is decoupled: the poller picks the lead up on its own schedule, so a
// capture succeeds even when every integration is down.
func (s *service) Capture(ctx context.Context, in CaptureInput) (*Lead, error) {
	if in.ClientID == "" {
		return nil, fmt.Errorf("%w: missing clientId", ErrValidation)
	}
	if !in.Contact.Any() {
		return nil, fmt.Errorf("%w: at least one contact field is required", ErrValidation)
	}

	attrs, score, stage := Merge(Attributes{}, StageCollectingVehicle, Delta{
		Attributes: Attributes{
			Contact: in.Contact,
			Vehicle: in.Vehicle,
			Service: in.Service,
		},
	})

	l := &Lead{
		ID:       uuid.NewString(),
		ClientID: in.ClientID,
		Attrs:    attrs,
		Score:    score,
		Stage:    stage,
	}
	saved, err := s.repo.Upsert(ctx, l)
	if err != nil {
		return nil, fmt.Errorf("capture upsert: %w", err)
	}

	s.log.Info("lead captured",
		zap.String("lead_id", saved.ID),
		zap.String("client_id", saved.ClientID),
		zap.Int("score", saved.Score))
	return saved, nil
}

// Chat runs one conversational turn: extract, merge, upsert. The caller
// round-trips its last-known attributes and stage, so no session state
// lives here.
func (s *service) Chat(ctx context.Context, in ChatInput) (*ChatResult, error) {
	if in.ClientID == "" || in.Message == "" {
		return nil, fmt.Errorf("%w: missing clientId or message", ErrValidation)
	}

	// The store wins over the round-tripped context when both exist: the
	// widget's copy can be stale, and merging never needs to erase.
	prior, stage := in.Prior, in.Stage
	id := in.LeadID
	created := false
	if id == "" {
		id = uuid.NewString()
		created = true
	} else if stored, err := s.repo.Get(ctx, id); err == nil {
		prior = stored.Attrs
		if stored.Stage > stage {
			stage = stored.Stage
		}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("chat load: %w", err)
	}

	reply, delta := s.extractor.Extract(ctx, in.Message, prior)
	metrics.RecordChatTurn(s.backend)

	attrs, score, newStage := Merge(prior, stage, delta)
	stage = newStage
	saved, err := s.repo.Upsert(ctx, &Lead{
		ID:       id,
		ClientID: in.ClientID,
		Attrs:    attrs,
		Score:    score,
		Stage:    stage,
	})
	if err != nil {
		return nil, fmt.Errorf("chat upsert: %w", err)
	}

	if created {
		s.log.Info("lead opened from chat",
			zap.String("lead_id", saved.ID),
			zap.String("client_id", saved.ClientID))
	}
	return &ChatResult{Reply: reply, Lead: saved}, nil
}
