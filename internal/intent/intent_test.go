package intent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tintbot/tintbot/internal/lead"
)

func TestTeslaCeramicScenario(t *testing.T) {
	rules := NewRules()
	reply, delta := rules.Extract(context.Background(), "I drive a 2023 Tesla Model 3, what's ceramic tint cost?", lead.Attributes{})

	assert.Equal(t, "Tesla", delta.Vehicle.Make)
	assert.Equal(t, "Model 3", delta.Vehicle.Model)
	assert.Equal(t, "2023", delta.Vehicle.Year)
	assert.True(t, delta.PremiumMake)
	assert.Equal(t, "ceramic", delta.Service.TintType)
	assert.True(t, delta.AskedPricing)

	_, score, _ := lead.Merge(lead.Attributes{}, lead.StageCollectingVehicle, delta)
	assert.GreaterOrEqual(t, score, 20+8, "premium-make bucket plus pricing bucket")

	lower := strings.ToLower(reply)
	assert.Contains(t, lower, "ceramic")
	assert.Contains(t, lower, "quote")
}

func TestPrecedence(t *testing.T) {
	cases := []struct {
		name    string
		message string
		want    Category
	}{
		{"premium beats pricing", "how much for my BMW", CategoryPremiumMake},
		{"standard beats booking", "can I book my Honda in", CategoryStandardMake},
		{"body type beats legal", "is 20% legal on an suv", CategoryBodyType},
		{"booking beats legal", "want to book, is that legal", CategoryBooking},
		{"legal beats compare", "what darkness is legal, and which is better", CategoryLegal},
		{"compare beats pricing", "price difference between films?", CategoryCompare},
		{"pricing alone", "what does it cost", CategoryPricing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, cat := Scan(tc.message)
			assert.Equal(t, tc.want, cat)
		})
	}
}

func TestUnmatchedGetsGenericReplyAndEngagementCredit(t *testing.T) {
	rules := NewRules()
	reply, delta := rules.Extract(context.Background(), "hmm okay", lead.Attributes{})

	require.NotEmpty(t, reply)
	assert.True(t, delta.Engaged)

	_, score, _ := lead.Merge(lead.Attributes{}, lead.StageCollectingVehicle, delta)
	assert.Greater(t, score, 0, "engagement earns a small flat credit")
	assert.Less(t, score, 10)
}

func TestContactExtraction(t *testing.T) {
	delta, _ := Scan("My name is Jordan Reyes, reach me at jordan@example.com or 555-010-0123")
	assert.Equal(t, "Jordan Reyes", delta.Contact.Name)
	assert.Equal(t, "jordan@example.com", delta.Contact.Email)
	assert.NotEmpty(t, delta.Contact.Phone)
}

func TestDarknessAndBudget(t *testing.T) {
	delta, _ := Scan("thinking 20% all windows, around $350")
	assert.Equal(t, "20%", delta.Service.Darkness)
	assert.Equal(t, "full", delta.Service.Coverage)
	assert.Equal(t, "standard", delta.Service.BudgetBand)
}

func TestKeywordsMatchWholeWordsOnly(t *testing.T) {
	delta, _ := Scan("i'm interested in ceramic tint")
	assert.Empty(t, delta.Vehicle.Make, "no make hides inside another word")
	assert.Empty(t, delta.Contact.Name, "lowercase text is not a name")
	assert.Equal(t, "ceramic", delta.Service.TintType)

	delta, _ = Scan("quoting tint for my Ram 1500")
	assert.Equal(t, "Ram", delta.Vehicle.Make)
}

func TestDarknessIgnoresOutOfRangePercent(t *testing.T) {
	delta, _ := Scan("can you do 100%?")
	assert.Empty(t, delta.Service.Darkness)
}

func TestCaseInsensitive(t *testing.T) {
	delta, _ := Scan("I HAVE A TESLA AND WANT CERAMIC")
	assert.Equal(t, "Tesla", delta.Vehicle.Make)
	assert.Equal(t, "ceramic", delta.Service.TintType)
}

func TestDeterministic(t *testing.T) {
	msg := "2022 Lexus suv, ceramic, what's the price?"
	d1, c1 := Scan(msg)
	d2, c2 := Scan(msg)
	assert.Equal(t, d1, d2)
	assert.Equal(t, c1, c2)
}

func TestRePromptFollowsStage(t *testing.T) {
	rules := NewRules()
	prior := lead.Attributes{Vehicle: lead.Vehicle{Make: "Kia"}}
	reply, _ := rules.Extract(context.Background(), "ok", prior)
	assert.Contains(t, strings.ToLower(reply), "film", "service stage re-prompt asks about film")
}
