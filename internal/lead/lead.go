package lead

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Stage is the conversation stage of a lead. Stages only move forward.
type Stage int

const (
	StageCollectingVehicle Stage = iota
	StageCollectingService
	StageCollectingContact
	StageReadyToBook
)

var stageNames = map[Stage]string{
	StageCollectingVehicle: "collecting-vehicle",
	StageCollectingService: "collecting-service",
	StageCollectingContact: "collecting-contact",
	StageReadyToBook:       "ready-to-book",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "collecting-vehicle"
}

func ParseStage(raw string) Stage {
	for s, name := range stageNames {
		if name == raw {
			return s
		}
	}
	return StageCollectingVehicle
}

// MarshalJSON / UnmarshalJSON use the same text names as the store, so a
// leadData payload echoed back as chat context decodes cleanly.
func (s Stage) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *Stage) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("lead: stage must be a string: %w", err)
	}
	*s = ParseStage(raw)
	return nil
}

// Value / Scan store the stage as its text name.
func (s Stage) Value() (driver.Value, error) { return s.String(), nil }

func (s *Stage) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*s = ParseStage(v)
	case []byte:
		*s = ParseStage(string(v))
	default:
		return fmt.Errorf("lead: cannot scan %T into Stage", src)
	}
	return nil
}

type Contact struct {
	Name  string `json:"name,omitempty" db:"name"`
	Email string `json:"email,omitempty" db:"email"`
	Phone string `json:"phone,omitempty" db:"phone"`
}

func (c Contact) Any() bool { return c.Name != "" || c.Email != "" || c.Phone != "" }

type Vehicle struct {
	Make     string `json:"make,omitempty" db:"vehicle_make"`
	Model    string `json:"model,omitempty" db:"vehicle_model"`
	Year     string `json:"year,omitempty" db:"vehicle_year"`
	BodyType string `json:"bodyType,omitempty" db:"vehicle_body"`
}

type ServicePreferences struct {
	TintType   string `json:"tintType,omitempty" db:"tint_type"`
	Darkness   string `json:"darkness,omitempty" db:"darkness"`
	Coverage   string `json:"coverage,omitempty" db:"coverage"`
	BudgetBand string `json:"budgetBand,omitempty" db:"budget_band"`
	Timeline   string `json:"timeline,omitempty" db:"timeline"`
}

// Attributes is everything the score is computed from. The score has no
// hidden inputs: ScoreOf(Attributes) is the single source of truth.
type Attributes struct {
	Contact Contact            `json:"contact"`
	Vehicle Vehicle            `json:"vehicle"`
	Service ServicePreferences `json:"service"`

	BookingIntent bool `json:"bookingIntent,omitempty" db:"booking_intent"`
	PremiumMake   bool `json:"premiumMake,omitempty" db:"premium_make"`

	AskedPricing  bool `json:"askedPricing,omitempty" db:"asked_pricing"`
	AskedLegal    bool `json:"askedLegal,omitempty" db:"asked_legal"`
	AskedHeat     bool `json:"askedHeat,omitempty" db:"asked_heat"`
	AskedWarranty bool `json:"askedWarranty,omitempty" db:"asked_warranty"`
	AskedCompare  bool `json:"askedCompare,omitempty" db:"asked_compare"`

	// Engagement counts messages that matched nothing else; each one earns
	// a small flat credit so an active conversation still climbs.
	Engagement int `json:"engagement,omitempty" db:"engagement"`
}

// Delta is what one chat turn contributed. Attribute fields overwrite only
// when non-empty; Engaged adds one engagement credit.
type Delta struct {
	Attributes
	Engaged bool `json:"engaged,omitempty"`
}

type Lead struct {
	ID        string     `json:"id" db:"id"`
	ClientID  string     `json:"clientId" db:"client_id"`
	Attrs     Attributes `json:"attributes"`
	Score     int        `json:"score" db:"score"`
	Stage     Stage      `json:"conversationState" db:"stage"`
	Processed bool       `json:"processed" db:"processed"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`
}

type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogFailure LogStatus = "failure"
)

// AutomationLogEntry records one channel outcome for one lead. Append-only.
type AutomationLogEntry struct {
	ID        int64     `json:"id" db:"id"`
	LeadID    string    `json:"leadId" db:"lead_id"`
	Channel   string    `json:"channel" db:"channel"`
	Status    LogStatus `json:"status" db:"status"`
	Detail    string    `json:"detail" db:"detail"`
	CreatedAt time.Time `json:"timestamp" db:"created_at"`
}
