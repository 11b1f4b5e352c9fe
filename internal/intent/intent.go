// Package intent turns free-text chat into a reply and a lead attribute
// delta. The rule table is fixed, matching is case-insensitive, and
// extraction is deterministic end to end.
package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tintbot/tintbot/internal/lead"
)

// Extractor is one chat turn in, reply and delta out. Stateless.
type Extractor interface {
	Extract(ctx context.Context, message string, prior lead.Attributes) (string, lead.Delta)
}

// Category is which rule bucket produced the reply. Attribute extraction
// always scans every bucket; the category only picks the reply, in fixed
// precedence order.
type Category int

const (
	CategoryGeneric Category = iota
	CategoryPricing
	CategoryCompare
	CategoryLegal
	CategoryHeat
	CategoryWarranty
	CategoryBudget
	CategoryThanks
	CategoryBooking
	CategoryBodyType
	CategoryStandardMake
	CategoryPremiumMake
)

var premiumMakes = []string{
	"tesla", "bmw", "mercedes", "audi", "porsche", "lexus", "land rover",
	"range rover", "jaguar", "maserati", "bentley", "cadillac", "rivian", "lucid",
}

var standardMakes = []string{
	"toyota", "honda", "ford", "chevrolet", "chevy", "nissan", "hyundai", "kia",
	"subaru", "mazda", "volkswagen", "jeep", "dodge", "ram", "gmc",
}

var bodyTypes = []string{
	"sedan", "coupe", "suv", "truck", "hatchback", "convertible", "van", "wagon", "crossover",
}

var tintTypes = []string{"ceramic", "carbon", "metallic", "dyed", "crystalline", "hybrid"}

var vehicleModels = []string{
	"model 3", "model y", "model s", "model x", "cybertruck",
	"civic", "accord", "camry", "corolla", "tacoma", "f-150", "f150",
	"mustang", "silverado", "wrangler", "3 series", "5 series", "c-class", "e-class",
}

var (
	bookingWords  = []string{"book", "appointment", "schedule", "come in", "when can", "available"}
	legalWords    = []string{"legal", "law", "regulation", "allowed", "pulled over"}
	heatWords     = []string{"heat", "hot", " uv", "glare", "cooler", "sun "}
	warrantyWords = []string{"warranty", "guarantee", "lifetime"}
	compareWords  = []string{"compare", "difference", " vs ", "versus", "better than"}
	pricingWords  = []string{"price", "cost", "quote", "how much", "estimate", "pricing"}
	budgetWords   = []string{"budget", "afford", "spend", "cheap"}
	thanksWords   = []string{"thanks", "thank you", "appreciate"}
)

var (
	yearPattern     = regexp.MustCompile(`\b(19[89]\d|20[0-3]\d)\b`)
	darknessPattern = regexp.MustCompile(`\b([0-9]{1,2})\s*%`)
	emailPattern    = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern    = regexp.MustCompile(`\+?\d[\d\-\s().]{8,}\d`)
	// The lead-in is case-insensitive but the captured name must be
	// capitalized, so "i'm interested in ceramic" extracts nothing.
	namePattern   = regexp.MustCompile(`\b(?i:my name is|i'm|i am|this is)\s+([A-Z][a-z]+(?:\s[A-Z][a-z]+)?)`)
	dollarPattern = regexp.MustCompile(`\$\s*([0-9][0-9,]*)`)
)

// Rules is the deterministic extractor. The zero value is ready to use.
type Rules struct{}

func NewRules() Rules { return Rules{} }

func (Rules) Extract(_ context.Context, message string, prior lead.Attributes) (string, lead.Delta) {
	delta, cat := Scan(message)
	return replyFor(cat, message, prior, delta), delta
}

// Scan runs every rule bucket over the text and returns the combined delta
// plus the highest-precedence category that matched.
func Scan(text string) (lead.Delta, Category) {
	lower := strings.ToLower(text)
	var d lead.Delta
	cat := CategoryGeneric

	note := func(c Category) {
		if c > cat {
			cat = c
		}
	}

	for _, m := range premiumMakes {
		if containsWord(lower, m) {
			d.Vehicle.Make = title(m)
			d.PremiumMake = true
			note(CategoryPremiumMake)
			break
		}
	}
	if d.Vehicle.Make == "" {
		for _, m := range standardMakes {
			if containsWord(lower, m) {
				d.Vehicle.Make = title(m)
				note(CategoryStandardMake)
				break
			}
		}
	}
	for _, b := range bodyTypes {
		if containsWord(lower, b) {
			d.Vehicle.BodyType = b
			note(CategoryBodyType)
			break
		}
	}
	for _, m := range vehicleModels {
		if containsWord(lower, m) {
			d.Vehicle.Model = title(m)
			break
		}
	}
	if y := yearPattern.FindString(text); y != "" {
		d.Vehicle.Year = y
	}

	for _, t := range tintTypes {
		if containsWord(lower, t) {
			d.Service.TintType = t
			break
		}
	}
	if m := darknessPattern.FindStringSubmatch(lower); m != nil {
		d.Service.Darkness = m[1] + "%"
	} else if strings.Contains(lower, "limo") {
		d.Service.Darkness = "5%"
	}
	if strings.Contains(lower, "full car") || strings.Contains(lower, "all windows") {
		d.Service.Coverage = "full"
	} else if strings.Contains(lower, "windshield") {
		d.Service.Coverage = "windshield"
	} else if strings.Contains(lower, "front two") || strings.Contains(lower, "front windows") {
		d.Service.Coverage = "front"
	}
	if m := dollarPattern.FindStringSubmatch(lower); m != nil {
		d.Service.BudgetBand = budgetBand(m[1])
		note(CategoryBudget)
	}

	if containsAny(lower, bookingWords) {
		d.BookingIntent = true
		note(CategoryBooking)
	}
	if containsAny(lower, legalWords) {
		d.AskedLegal = true
		note(CategoryLegal)
	}
	if containsAny(lower, heatWords) {
		d.AskedHeat = true
		note(CategoryHeat)
	}
	if containsAny(lower, warrantyWords) {
		d.AskedWarranty = true
		note(CategoryWarranty)
	}
	if containsAny(lower, compareWords) {
		d.AskedCompare = true
		note(CategoryCompare)
	}
	if containsAny(lower, pricingWords) {
		d.AskedPricing = true
		note(CategoryPricing)
	}
	if containsAny(lower, budgetWords) {
		if d.Service.BudgetBand == "" {
			d.Service.BudgetBand = "value"
		}
		note(CategoryBudget)
	}
	if containsAny(lower, thanksWords) {
		note(CategoryThanks)
	}

	if e := emailPattern.FindString(text); e != "" {
		d.Contact.Email = e
	}
	if p := phonePattern.FindString(text); p != "" {
		d.Contact.Phone = strings.TrimSpace(p)
	}
	if m := namePattern.FindStringSubmatch(text); m != nil {
		d.Contact.Name = m[1]
	}

	if cat == CategoryGeneric && !hasAttributes(d) {
		d.Engaged = true
	}
	return d, cat
}

func hasAttributes(d lead.Delta) bool {
	return d.Contact.Any() || d.Vehicle.Make != "" || d.Vehicle.BodyType != "" ||
		d.Vehicle.Model != "" || d.Vehicle.Year != "" ||
		d.Service.TintType != "" || d.Service.Darkness != "" ||
		d.Service.BudgetBand != "" || d.BookingIntent
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// containsWord finds phrase in s only at word boundaries, so a short make
// like "ram" cannot match inside "ceramic".
func containsWord(s, phrase string) bool {
	for from := 0; ; {
		i := strings.Index(s[from:], phrase)
		if i < 0 {
			return false
		}
		i += from
		j := i + len(phrase)
		if (i == 0 || !isAlnum(s[i-1])) && (j == len(s) || !isAlnum(s[j])) {
			return true
		}
		from = i + 1
	}
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func budgetBand(amount string) string {
	n := 0
	for _, c := range amount {
		if c >= '0' && c <= '9' {
			n = n*10 + int(c-'0')
		}
	}
	switch {
	case n < 200:
		return "economy"
	case n < 450:
		return "standard"
	default:
		return "premium"
	}
}

func title(s string) string {
	parts := strings.Fields(s)
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

func replyFor(cat Category, _ string, prior lead.Attributes, d lead.Delta) string {
	tint := d.Service.TintType
	if tint == "" {
		tint = prior.Service.TintType
	}

	switch cat {
	case CategoryPremiumMake, CategoryStandardMake, CategoryBodyType:
		vehicle := strings.TrimSpace(d.Vehicle.Make + " " + d.Vehicle.Model)
		if vehicle == "" {
			vehicle = d.Vehicle.BodyType
		}
		if tint != "" {
			return fmt.Sprintf("Great choice, %s tint is a popular pick for a %s. Want an instant quote for it?", tint, vehicle)
		}
		return fmt.Sprintf("Nice, a %s. Do you already know what film you want: ceramic, carbon, or dyed?", vehicle)
	case CategoryBooking:
		if prior.Contact.Any() || d.Contact.Any() {
			return "Let's get you booked in. I'll send over a scheduling link right away."
		}
		return "Happy to get you on the calendar. What's the best name and phone number or email to book under?"
	case CategoryLegal:
		return "Tint laws vary by state, but we only install within the legal limit for your windows. Want to tell me your state so I can be specific?"
	case CategoryCompare:
		return "Short version: ceramic blocks the most heat, carbon is the middle ground, and dyed is the budget option. Want a side-by-side quote?"
	case CategoryHeat:
		return "If heat is the main concern, ceramic film is the way to go, it rejects the most infrared. Want a quote for ceramic?"
	case CategoryWarranty:
		return "Our films carry a lifetime warranty against bubbling, peeling, and fading. Anything else you'd like to know before a quote?"
	case CategoryBudget:
		return "We have film options at every price point. Tell me your vehicle and I can line up packages that fit your budget."
	case CategoryPricing:
		if tint != "" {
			return fmt.Sprintf("I can price %s tint for you right now. Want an instant quote?", tint)
		}
		return "Pricing depends on the vehicle and film. What are you driving, and do you have a film type in mind?"
	case CategoryThanks:
		return "Anytime! If you'd like, I can get you an instant quote or set up an appointment."
	default:
		return stagePrompt(lead.StageOf(prior))
	}
}

// stagePrompt re-prompts for whatever the conversation still needs; used
// when a message matched nothing.
func stagePrompt(s lead.Stage) string {
	switch s {
	case lead.StageCollectingService:
		return "Got it. Do you know which film you'd like (ceramic, carbon, or dyed) and how dark?"
	case lead.StageCollectingContact:
		return "Almost there. What's the best name and phone number or email to reach you at?"
	case lead.StageReadyToBook:
		return "You're all set for booking. Want me to send over a scheduling link?"
	default:
		return "I can help with tint quotes, film options, and booking. What are you driving?"
	}
}
