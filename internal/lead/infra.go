package lead

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("lead: not found")

type repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) Repo {
	return &repo{db: db}
}

// EnsureSchema creates the tables so the binary runs against a fresh database.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS leads (
			id             TEXT PRIMARY KEY,
			client_id      TEXT NOT NULL,
			name           TEXT NOT NULL DEFAULT '',
			email          TEXT NOT NULL DEFAULT '',
			phone          TEXT NOT NULL DEFAULT '',
			vehicle_make   TEXT NOT NULL DEFAULT '',
			vehicle_model  TEXT NOT NULL DEFAULT '',
			vehicle_year   TEXT NOT NULL DEFAULT '',
			vehicle_body   TEXT NOT NULL DEFAULT '',
			tint_type      TEXT NOT NULL DEFAULT '',
			darkness       TEXT NOT NULL DEFAULT '',
			coverage       TEXT NOT NULL DEFAULT '',
			budget_band    TEXT NOT NULL DEFAULT '',
			timeline       TEXT NOT NULL DEFAULT '',
			booking_intent BOOLEAN NOT NULL DEFAULT FALSE,
			premium_make   BOOLEAN NOT NULL DEFAULT FALSE,
			asked_pricing  BOOLEAN NOT NULL DEFAULT FALSE,
			asked_legal    BOOLEAN NOT NULL DEFAULT FALSE,
			asked_heat     BOOLEAN NOT NULL DEFAULT FALSE,
			asked_warranty BOOLEAN NOT NULL DEFAULT FALSE,
			asked_compare  BOOLEAN NOT NULL DEFAULT FALSE,
			engagement     INTEGER NOT NULL DEFAULT 0,
			score          INTEGER NOT NULL DEFAULT 0,
			stage          TEXT NOT NULL DEFAULT 'collecting-vehicle',
			processed      BOOLEAN NOT NULL DEFAULT FALSE,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_leads_dispatch
			ON leads (processed, score, created_at);
		CREATE TABLE IF NOT EXISTS automation_log (
			id         BIGSERIAL PRIMARY KEY,
			lead_id    TEXT NOT NULL,
			channel    TEXT NOT NULL,
			status     TEXT NOT NULL,
			detail     TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_automation_log_lead
			ON automation_log (lead_id, created_at);
	`)
	return err
}

// leadRow flattens Lead for sqlx named binding.
type leadRow struct {
	ID        string    `db:"id"`
	ClientID  string    `db:"client_id"`
	Score     int       `db:"score"`
	Stage     Stage     `db:"stage"`
	Processed bool      `db:"processed"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	Name        string `db:"name"`
	Email       string `db:"email"`
	Phone       string `db:"phone"`
	VehicleMake string `db:"vehicle_make"`
	VehicleMod  string `db:"vehicle_model"`
	VehicleYear string `db:"vehicle_year"`
	VehicleBody string `db:"vehicle_body"`
	TintType    string `db:"tint_type"`
	Darkness    string `db:"darkness"`
	Coverage    string `db:"coverage"`
	BudgetBand  string `db:"budget_band"`
	Timeline    string `db:"timeline"`

	BookingIntent bool `db:"booking_intent"`
	PremiumMake   bool `db:"premium_make"`
	AskedPricing  bool `db:"asked_pricing"`
	AskedLegal    bool `db:"asked_legal"`
	AskedHeat     bool `db:"asked_heat"`
	AskedWarranty bool `db:"asked_warranty"`
	AskedCompare  bool `db:"asked_compare"`
	Engagement    int  `db:"engagement"`
}

func toRow(l *Lead) leadRow {
	a := l.Attrs
	return leadRow{
		ID: l.ID, ClientID: l.ClientID, Score: l.Score, Stage: l.Stage,
		Processed: l.Processed, CreatedAt: l.CreatedAt, UpdatedAt: l.UpdatedAt,
		Name: a.Contact.Name, Email: a.Contact.Email, Phone: a.Contact.Phone,
		VehicleMake: a.Vehicle.Make, VehicleMod: a.Vehicle.Model,
		VehicleYear: a.Vehicle.Year, VehicleBody: a.Vehicle.BodyType,
		TintType: a.Service.TintType, Darkness: a.Service.Darkness,
		Coverage: a.Service.Coverage, BudgetBand: a.Service.BudgetBand,
		Timeline:      a.Service.Timeline,
		BookingIntent: a.BookingIntent, PremiumMake: a.PremiumMake,
		AskedPricing: a.AskedPricing, AskedLegal: a.AskedLegal,
		AskedHeat: a.AskedHeat, AskedWarranty: a.AskedWarranty,
		AskedCompare: a.AskedCompare, Engagement: a.Engagement,
	}
}

func (r leadRow) toLead() Lead {
	return Lead{
		ID: r.ID, ClientID: r.ClientID, Score: r.Score, Stage: r.Stage,
		Processed: r.Processed, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
		Attrs: Attributes{
			Contact: Contact{Name: r.Name, Email: r.Email, Phone: r.Phone},
			Vehicle: Vehicle{Make: r.VehicleMake, Model: r.VehicleMod, Year: r.VehicleYear, BodyType: r.VehicleBody},
			Service: ServicePreferences{
				TintType: r.TintType, Darkness: r.Darkness, Coverage: r.Coverage,
				BudgetBand: r.BudgetBand, Timeline: r.Timeline,
			},
			BookingIntent: r.BookingIntent, PremiumMake: r.PremiumMake,
			AskedPricing: r.AskedPricing, AskedLegal: r.AskedLegal,
			AskedHeat: r.AskedHeat, AskedWarranty: r.AskedWarranty,
			AskedCompare: r.AskedCompare, Engagement: r.Engagement,
		},
	}
}

const upsertQuery = `
	INSERT INTO leads (
		id, client_id, name, email, phone,
		vehicle_make, vehicle_model, vehicle_year, vehicle_body,
		tint_type, darkness, coverage, budget_band, timeline,
		booking_intent, premium_make,
		asked_pricing, asked_legal, asked_heat, asked_warranty, asked_compare,
		engagement, score, stage
	) VALUES (
		:id, :client_id, :name, :email, :phone,
		:vehicle_make, :vehicle_model, :vehicle_year, :vehicle_body,
		:tint_type, :darkness, :coverage, :budget_band, :timeline,
		:booking_intent, :premium_make,
		:asked_pricing, :asked_legal, :asked_heat, :asked_warranty, :asked_compare,
		:engagement, :score, :stage
	)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name, email = EXCLUDED.email, phone = EXCLUDED.phone,
		vehicle_make = EXCLUDED.vehicle_make, vehicle_model = EXCLUDED.vehicle_model,
		vehicle_year = EXCLUDED.vehicle_year, vehicle_body = EXCLUDED.vehicle_body,
		tint_type = EXCLUDED.tint_type, darkness = EXCLUDED.darkness,
		coverage = EXCLUDED.coverage, budget_band = EXCLUDED.budget_band,
		timeline = EXCLUDED.timeline,
		booking_intent = EXCLUDED.booking_intent, premium_make = EXCLUDED.premium_make,
		asked_pricing = EXCLUDED.asked_pricing, asked_legal = EXCLUDED.asked_legal,
		asked_heat = EXCLUDED.asked_heat, asked_warranty = EXCLUDED.asked_warranty,
		asked_compare = EXCLUDED.asked_compare,
		engagement = EXCLUDED.engagement, score = EXCLUDED.score,
		stage = EXCLUDED.stage, updated_at = now()
	RETURNING *`

func (r *repo) Upsert(ctx context.Context, l *Lead) (*Lead, error) {
	rows, err := r.db.NamedQueryContext(ctx, upsertQuery, toRow(l))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	var row leadRow
	if err := rows.StructScan(&row); err != nil {
		return nil, err
	}
	out := row.toLead()
	return &out, nil
}

func (r *repo) Get(ctx context.Context, id string) (*Lead, error) {
	var row leadRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM leads WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := row.toLead()
	return &out, nil
}

func (r *repo) FindQualifyingUnprocessed(ctx context.Context, clientID string, threshold int, maxAge time.Duration, limit int) ([]Lead, error) {
	q := `
		SELECT * FROM leads
		WHERE processed = FALSE
		  AND score >= $1
		  AND created_at >= $2
		  AND ($3 = '' OR client_id = $3)
		ORDER BY created_at ASC
		LIMIT $4`
	var rows []leadRow
	err := r.db.SelectContext(ctx, &rows, q, threshold, time.Now().Add(-maxAge), clientID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Lead, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toLead())
	}
	return out, nil
}

// MarkProcessed is the claim. The conditional UPDATE serializes concurrent
// dispatchers at the row; exactly one caller sees an affected row.
func (r *repo) MarkProcessed(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE leads SET processed = TRUE, updated_at = now()
		WHERE id = $1 AND processed = FALSE
	`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *repo) AppendAutomationLog(ctx context.Context, e AutomationLogEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO automation_log (lead_id, channel, status, detail)
		VALUES ($1, $2, $3, $4)
	`, e.LeadID, e.Channel, string(e.Status), e.Detail)
	return err
}

func (r *repo) ListAutomationLog(ctx context.Context, leadID string) ([]AutomationLogEntry, error) {
	var out []AutomationLogEntry
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, lead_id, channel, status, detail, created_at
		FROM automation_log
		WHERE lead_id = $1
		ORDER BY created_at ASC
	`, leadID)
	return out, err
}
