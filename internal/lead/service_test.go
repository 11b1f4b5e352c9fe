package lead

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeExtractor struct {
	reply string
	delta Delta
}

func (f fakeExtractor) Extract(context.Context, string, Attributes) (string, Delta) {
	return f.reply, f.delta
}

func TestCaptureValidation(t *testing.T) {
	svc := NewService(NewMemoryRepo(), fakeExtractor{}, "rules", zap.NewNop())

	_, err := svc.Capture(context.Background(), CaptureInput{ClientID: "shop-1"})
	assert.ErrorIs(t, err, ErrValidation, "contactless capture is rejected")

	_, err = svc.Capture(context.Background(), CaptureInput{Contact: Contact{Name: "Ana"}})
	assert.ErrorIs(t, err, ErrValidation, "missing clientId is rejected")
}

func TestCaptureScoresAndStores(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, fakeExtractor{}, "rules", zap.NewNop())

	saved, err := svc.Capture(context.Background(), CaptureInput{
		ClientID: "shop-1",
		Contact:  Contact{Name: "Ana", Email: "ana@example.com"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, 40, saved.Score)
	assert.False(t, saved.Processed)

	got, err := repo.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Score, got.Score)
}

func TestChatCreatesThenAccumulates(t *testing.T) {
	repo := NewMemoryRepo()
	first := fakeExtractor{reply: "nice car", delta: Delta{
		Attributes: Attributes{Vehicle: Vehicle{Make: "Tesla"}, PremiumMake: true},
	}}
	svc := NewService(repo, first, "rules", zap.NewNop())

	res, err := svc.Chat(context.Background(), ChatInput{
		ClientID: "shop-1",
		Message:  "I have a Tesla",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Lead)
	assert.Equal(t, "nice car", res.Reply)
	assert.Equal(t, 25, res.Lead.Score)
	assert.Equal(t, StageCollectingService, res.Lead.Stage)

	// Second turn against the same lead id; stored state is the base even
	// though the caller sends no context.
	second := NewService(repo, fakeExtractor{reply: "got it", delta: Delta{
		Attributes: Attributes{Contact: Contact{Phone: "555-0100"}},
	}}, "rules", zap.NewNop())

	res2, err := second.Chat(context.Background(), ChatInput{
		ClientID: "shop-1",
		LeadID:   res.Lead.ID,
		Message:  "call me at 555-0100",
	})
	require.NoError(t, err)
	assert.Equal(t, res.Lead.ID, res2.Lead.ID)
	assert.Equal(t, "Tesla", res2.Lead.Attrs.Vehicle.Make, "stored attributes survive a contextless turn")
	assert.Equal(t, 40, res2.Lead.Score)
}

func TestChatValidation(t *testing.T) {
	svc := NewService(NewMemoryRepo(), fakeExtractor{}, "rules", zap.NewNop())
	_, err := svc.Chat(context.Background(), ChatInput{ClientID: "shop-1"})
	assert.ErrorIs(t, err, ErrValidation)
}
