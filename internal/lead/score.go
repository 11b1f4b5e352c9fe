package lead

// Score weights. The ordering matters more than the exact numbers:
// booking intent > contact fields ≈ vehicle/service > question topics > engagement.
const (
	pointsName        = 20
	pointsEmail       = 20
	pointsPhone       = 15
	pointsMake        = 15
	pointsPremiumMake = 25
	pointsTintType    = 18
	pointsBudget      = 10
	pointsBooking     = 28
	pointsQuestion    = 8
	pointsEngagement  = 3

	MaxScore = 100
)

// ScoreOf derives the score from attributes alone. Upper-bounded at MaxScore.
func ScoreOf(a Attributes) int {
	score := 0
	if a.Contact.Name != "" {
		score += pointsName
	}
	if a.Contact.Email != "" {
		score += pointsEmail
	}
	if a.Contact.Phone != "" {
		score += pointsPhone
	}
	if a.Vehicle.Make != "" {
		if a.PremiumMake {
			score += pointsPremiumMake
		} else {
			score += pointsMake
		}
	}
	if a.Service.TintType != "" {
		score += pointsTintType
	}
	if a.Service.BudgetBand != "" {
		score += pointsBudget
	}
	if a.BookingIntent {
		score += pointsBooking
	}
	for _, asked := range []bool{a.AskedPricing, a.AskedLegal, a.AskedHeat, a.AskedWarranty, a.AskedCompare} {
		if asked {
			score += pointsQuestion
		}
	}
	score += pointsEngagement * a.Engagement
	if score > MaxScore {
		score = MaxScore
	}
	return score
}

// StageOf derives the natural stage from attributes: vehicle known → service,
// service known → contact, contact known + booking intent → ready to book.
func StageOf(a Attributes) Stage {
	s := StageCollectingVehicle
	if a.Vehicle.Make != "" || a.Vehicle.BodyType != "" {
		s = StageCollectingService
	}
	if s >= StageCollectingService && a.Service.TintType != "" {
		s = StageCollectingContact
	}
	if s >= StageCollectingContact && a.Contact.Any() && a.BookingIntent {
		s = StageReadyToBook
	}
	return s
}

// Merge folds one turn's delta into the accumulated attributes and returns
// the merged attributes, the recomputed score and the new stage. Non-empty
// delta fields overwrite, empty fields never erase. The score never
// decreases because merging never unsets anything; the stage keeps
// max(current, derived) so it never regresses.
func Merge(current Attributes, currentStage Stage, d Delta) (Attributes, int, Stage) {
	m := current

	if d.Contact.Name != "" {
		m.Contact.Name = d.Contact.Name
	}
	if d.Contact.Email != "" {
		m.Contact.Email = d.Contact.Email
	}
	if d.Contact.Phone != "" {
		m.Contact.Phone = d.Contact.Phone
	}
	if d.Vehicle.Make != "" {
		m.Vehicle.Make = d.Vehicle.Make
		// Sticky: a corrected make never takes points back.
		m.PremiumMake = m.PremiumMake || d.PremiumMake
	}
	if d.Vehicle.Model != "" {
		m.Vehicle.Model = d.Vehicle.Model
	}
	if d.Vehicle.Year != "" {
		m.Vehicle.Year = d.Vehicle.Year
	}
	if d.Vehicle.BodyType != "" {
		m.Vehicle.BodyType = d.Vehicle.BodyType
	}
	if d.Service.TintType != "" {
		m.Service.TintType = d.Service.TintType
	}
	if d.Service.Darkness != "" {
		m.Service.Darkness = d.Service.Darkness
	}
	if d.Service.Coverage != "" {
		m.Service.Coverage = d.Service.Coverage
	}
	if d.Service.BudgetBand != "" {
		m.Service.BudgetBand = d.Service.BudgetBand
	}
	if d.Service.Timeline != "" {
		m.Service.Timeline = d.Service.Timeline
	}

	m.BookingIntent = m.BookingIntent || d.BookingIntent
	m.AskedPricing = m.AskedPricing || d.AskedPricing
	m.AskedLegal = m.AskedLegal || d.AskedLegal
	m.AskedHeat = m.AskedHeat || d.AskedHeat
	m.AskedWarranty = m.AskedWarranty || d.AskedWarranty
	m.AskedCompare = m.AskedCompare || d.AskedCompare
	if d.Engaged {
		m.Engagement++
	}

	stage := StageOf(m)
	if currentStage > stage {
		stage = currentStage
	}
	return m, ScoreOf(m), stage
}
