// Package dispatch turns qualifying leads into fan-out calls across the
// tenant's enabled integration channels.
//
// Delivery is at-most-once per channel: the lead is claimed (markProcessed)
// before any channel is called, so a crash mid-fan-out leaves the lead
// processed with a partial automation log. The log rows are the only record
// of what each channel did.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tintbot/tintbot/internal/client"
	"github.com/tintbot/tintbot/internal/integration"
	"github.com/tintbot/tintbot/internal/lead"
	"github.com/tintbot/tintbot/internal/metrics"
)

var ErrAlreadyProcessed = errors.New("dispatch: lead already processed")

type Options struct {
	Interval       time.Duration // poll tick, default 30s
	ScoreThreshold int           // default 70
	MaxAge         time.Duration // default 24h
	BatchSize      int           // default 10
	AdapterTimeout time.Duration // per-channel call budget, default 15s
}

func (o *Options) fill() {
	if o.Interval <= 0 {
		o.Interval = 30 * time.Second
	}
	if o.ScoreThreshold <= 0 {
		o.ScoreThreshold = 70
	}
	if o.MaxAge <= 0 {
		o.MaxAge = 24 * time.Hour
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 10
	}
	if o.AdapterTimeout <= 0 {
		o.AdapterTimeout = 15 * time.Second
	}
}

type Dispatcher struct {
	leads    lead.Repo
	clients  client.Repo
	adapters integration.Registry
	log      *zap.Logger
	opts     Options
}

func New(leads lead.Repo, clients client.Repo, adapters integration.Registry, log *zap.Logger, opts Options) *Dispatcher {
	opts.fill()
	return &Dispatcher{
		leads:    leads,
		clients:  clients,
		adapters: adapters,
		log:      log,
		opts:     opts,
	}
}

// Run polls until ctx is cancelled. A tick always finishes its own batch;
// cancellation takes effect between ticks.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.opts.Interval)
	defer ticker.Stop()

	d.log.Info("dispatcher started",
		zap.Duration("interval", d.opts.Interval),
		zap.Int("threshold", d.opts.ScoreThreshold),
		zap.Int("batch", d.opts.BatchSize))

	for {
		select {
		case <-ctx.Done():
			d.log.Info("dispatcher stopped")
			return
		case <-ticker.C:
			d.runOnce(ctx)
		}
	}
}

func (d *Dispatcher) runOnce(ctx context.Context) {
	batch, err := d.leads.FindQualifyingUnprocessed(ctx, "", d.opts.ScoreThreshold, d.opts.MaxAge, d.opts.BatchSize)
	if err != nil {
		d.log.Error("qualifying lead query failed", zap.Error(err))
		return
	}
	for i := range batch {
		if err := d.dispatch(ctx, &batch[i]); err != nil && !errors.Is(err, ErrAlreadyProcessed) {
			d.log.Error("dispatch failed",
				zap.String("lead_id", batch[i].ID),
				zap.Error(err))
		}
	}
}

// DispatchLead is the manual trigger path. Same claim guard as the poller.
func (d *Dispatcher) DispatchLead(ctx context.Context, leadID string) error {
	l, err := d.leads.Get(ctx, leadID)
	if err != nil {
		return err
	}
	return d.dispatch(ctx, l)
}

// dispatch claims the lead, then fans out to every enabled channel
// concurrently and writes one log row per channel. A channel failure is
// recorded and swallowed; it never blocks or cancels the others.
func (d *Dispatcher) dispatch(ctx context.Context, l *lead.Lead) error {
	claimed, err := d.leads.MarkProcessed(ctx, l.ID)
	if err != nil {
		return fmt.Errorf("claim %s: %w", l.ID, err)
	}
	metrics.RecordClaim(claimed)
	if !claimed {
		return ErrAlreadyProcessed
	}

	cfg, err := d.clients.Get(ctx, l.ClientID)
	if err != nil {
		// Claimed but undeliverable: the empty log is the evidence.
		d.log.Error("client config missing for claimed lead",
			zap.String("lead_id", l.ID),
			zap.String("client_id", l.ClientID),
			zap.Error(err))
		return nil
	}

	channels := cfg.EnabledChannels()
	if len(channels) == 0 {
		d.log.Info("no enabled channels for lead",
			zap.String("lead_id", l.ID),
			zap.String("client_id", l.ClientID))
		return nil
	}

	// All issued, all awaited. Goroutines report through the log, never
	// through the group error, so one failure cannot cancel siblings.
	var g errgroup.Group
	for _, ch := range channels {
		ch := ch
		adapter, ok := d.adapters[ch.Type]
		if !ok {
			d.log.Warn("channel enabled but no adapter wired",
				zap.String("channel", string(ch.Type)),
				zap.String("client_id", l.ClientID))
			continue
		}
		g.Go(func() error {
			d.deliver(ctx, *l, adapter, ch)
			return nil
		})
	}
	_ = g.Wait()
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, l lead.Lead, adapter integration.Adapter, ch client.ChannelConfig) {
	callCtx, cancel := context.WithTimeout(ctx, d.opts.AdapterTimeout)
	defer cancel()

	// Log row is written with the parent ctx so a timed-out call still
	// leaves its failure on record.
	detail, err := adapter.Deliver(callCtx, l, ch)
	entry := lead.AutomationLogEntry{
		LeadID:  l.ID,
		Channel: string(ch.Type),
		Status:  lead.LogSuccess,
		Detail:  detail,
	}
	if err != nil {
		entry.Status = lead.LogFailure
		entry.Detail = err.Error()
		d.log.Warn("channel delivery failed",
			zap.String("lead_id", l.ID),
			zap.String("channel", string(ch.Type)),
			zap.Error(err))
	}
	metrics.RecordDispatch(string(ch.Type), string(entry.Status))

	if err := d.leads.AppendAutomationLog(ctx, entry); err != nil {
		d.log.Error("automation log append failed",
			zap.String("lead_id", l.ID),
			zap.String("channel", string(ch.Type)),
			zap.Error(err))
	}
}
