package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tintbot/tintbot/internal/client"
	"github.com/tintbot/tintbot/internal/integration"
	"github.com/tintbot/tintbot/internal/lead"
)

type fakeClients struct {
	cfgs map[string]*client.Config
}

func (f fakeClients) Get(_ context.Context, id string) (*client.Config, error) {
	cfg, ok := f.cfgs[id]
	if !ok {
		return nil, client.ErrNotFound
	}
	return cfg, nil
}

type fakeAdapter struct {
	channel client.ChannelType
	err     error
	mu      sync.Mutex
	calls   int
}

func (f *fakeAdapter) Channel() client.ChannelType { return f.channel }

func (f *fakeAdapter) Deliver(context.Context, lead.Lead, client.ChannelConfig) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return "ok", nil
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func allEnabled() *client.Config {
	return &client.Config{
		ClientID: "shop-1",
		Channels: []client.ChannelConfig{
			{Type: client.ChannelCRM, Enabled: true, CRM: &client.CRMSettings{Domain: "shop", AppSecret: "s"}},
			{Type: client.ChannelWebhook, Enabled: true, Webhook: &client.WebhookSettings{URL: "https://example.com/hook"}},
			{Type: client.ChannelNotification, Enabled: true, Notification: &client.NotificationSettings{ChatID: 42}},
		},
	}
}

func seedLead(t *testing.T, repo *lead.MemoryRepo, score int) *lead.Lead {
	t.Helper()
	saved, err := repo.Upsert(context.Background(), &lead.Lead{
		ID:       "lead-" + t.Name(),
		ClientID: "shop-1",
		Score:    score,
	})
	require.NoError(t, err)
	return saved
}

func newTestDispatcher(repo *lead.MemoryRepo, clients client.Repo, adapters ...integration.Adapter) *Dispatcher {
	return New(repo, clients, integration.NewRegistry(adapters...), zap.NewNop(), Options{})
}

func TestPartialFailureIsolation(t *testing.T) {
	repo := lead.NewMemoryRepo()
	l := seedLead(t, repo, 90)

	crm := &fakeAdapter{channel: client.ChannelCRM, err: errors.New("crm is down")}
	hook := &fakeAdapter{channel: client.ChannelWebhook}
	notify := &fakeAdapter{channel: client.ChannelNotification}

	d := newTestDispatcher(repo, fakeClients{cfgs: map[string]*client.Config{"shop-1": allEnabled()}}, crm, hook, notify)
	require.NoError(t, d.DispatchLead(context.Background(), l.ID))

	assert.Equal(t, 1, crm.callCount())
	assert.Equal(t, 1, hook.callCount())
	assert.Equal(t, 1, notify.callCount(), "one channel failing must not block the others")

	entries, err := repo.ListAutomationLog(context.Background(), l.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byChannel := map[string]lead.LogStatus{}
	for _, e := range entries {
		byChannel[e.Channel] = e.Status
	}
	assert.Equal(t, lead.LogFailure, byChannel["crm"])
	assert.Equal(t, lead.LogSuccess, byChannel["webhook"])
	assert.Equal(t, lead.LogSuccess, byChannel["notification"])

	got, err := repo.Get(context.Background(), l.ID)
	require.NoError(t, err)
	assert.True(t, got.Processed, "lead stays processed despite the channel failure")
}

func TestDoubleDispatchIsIdempotent(t *testing.T) {
	repo := lead.NewMemoryRepo()
	l := seedLead(t, repo, 90)

	crm := &fakeAdapter{channel: client.ChannelCRM}
	d := newTestDispatcher(repo, fakeClients{cfgs: map[string]*client.Config{"shop-1": allEnabled()}}, crm)

	require.NoError(t, d.DispatchLead(context.Background(), l.ID))
	err := d.DispatchLead(context.Background(), l.ID)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Equal(t, 1, crm.callCount(), "second trigger must not re-deliver")
}

func TestConcurrentClaimsExactlyOneWins(t *testing.T) {
	repo := lead.NewMemoryRepo()
	l := seedLead(t, repo, 90)

	const callers = 16
	var wg sync.WaitGroup
	wins := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.MarkProcessed(context.Background(), l.ID)
			assert.NoError(t, err)
			wins <- ok
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for ok := range wins {
		if ok {
			won++
		}
	}
	assert.Equal(t, 1, won, "exactly one concurrent claim succeeds")
}

func TestRunOnceSelectsQualifyingLeadsOnly(t *testing.T) {
	repo := lead.NewMemoryRepo()

	qualifying, err := repo.Upsert(context.Background(), &lead.Lead{ID: "hot", ClientID: "shop-1", Score: 85})
	require.NoError(t, err)
	_, err = repo.Upsert(context.Background(), &lead.Lead{ID: "cold", ClientID: "shop-1", Score: 30})
	require.NoError(t, err)

	crm := &fakeAdapter{channel: client.ChannelCRM}
	d := newTestDispatcher(repo, fakeClients{cfgs: map[string]*client.Config{"shop-1": allEnabled()}}, crm)
	d.runOnce(context.Background())

	hot, err := repo.Get(context.Background(), qualifying.ID)
	require.NoError(t, err)
	assert.True(t, hot.Processed)

	cold, err := repo.Get(context.Background(), "cold")
	require.NoError(t, err)
	assert.False(t, cold.Processed, "below-threshold lead stays unclaimed")
}

func TestMissingClientConfigLeavesLeadClaimed(t *testing.T) {
	repo := lead.NewMemoryRepo()
	l := seedLead(t, repo, 90)

	d := newTestDispatcher(repo, fakeClients{cfgs: map[string]*client.Config{}}, &fakeAdapter{channel: client.ChannelCRM})
	require.NoError(t, d.DispatchLead(context.Background(), l.ID))

	got, err := repo.Get(context.Background(), l.ID)
	require.NoError(t, err)
	assert.True(t, got.Processed, "claim happens before config lookup, by the at-most-once contract")

	entries, err := repo.ListAutomationLog(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHungAdapterIsCutOffByTimeout(t *testing.T) {
	repo := lead.NewMemoryRepo()
	l := seedLead(t, repo, 90)

	d := New(repo,
		fakeClients{cfgs: map[string]*client.Config{"shop-1": allEnabled()}},
		integration.NewRegistry(hangingAdapter{}),
		zap.NewNop(),
		Options{AdapterTimeout: 50 * time.Millisecond})

	done := make(chan struct{})
	go func() {
		_ = d.DispatchLead(context.Background(), l.ID)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hung adapter stalled the dispatch")
	}

	entries, err := repo.ListAutomationLog(context.Background(), l.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, lead.LogFailure, entries[0].Status)
}

type hangingAdapter struct{}

func (hangingAdapter) Channel() client.ChannelType { return client.ChannelCRM }

func (hangingAdapter) Deliver(ctx context.Context, _ lead.Lead, _ client.ChannelConfig) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
