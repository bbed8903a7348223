package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadflow/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id                  TEXT PRIMARY KEY,
	business_id         TEXT NOT NULL,
	source_key          TEXT NOT NULL,
	lead                TEXT NOT NULL,
	segment             TEXT NOT NULL,
	qualification_score INTEGER NOT NULL DEFAULT 0,
	status              TEXT NOT NULL DEFAULT 'new',
	created_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (business_id, source_key)
);

CREATE INDEX IF NOT EXISTS idx_leads_business_segment ON leads(business_id, segment);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);

CREATE TABLE IF NOT EXISTS email_campaigns (
	id             TEXT PRIMARY KEY,
	business_id    TEXT NOT NULL,
	name           TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'draft',
	touches        TEXT NOT NULL,
	target_segment TEXT NOT NULL CHECK (target_segment = 'cold'),
	metrics        TEXT NOT NULL DEFAULT '{}',
	degraded       INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS voice_campaigns (
	id                 TEXT PRIMARY KEY,
	business_id        TEXT NOT NULL,
	name               TEXT NOT NULL,
	status             TEXT NOT NULL DEFAULT 'draft',
	greeting_script    TEXT NOT NULL,
	pitch_script       TEXT NOT NULL,
	objection_handling TEXT NOT NULL,
	closing_script     TEXT NOT NULL,
	target_segment     TEXT NOT NULL CHECK (target_segment IN ('warm', 'hot')),
	metrics            TEXT NOT NULL DEFAULT '{}',
	agent_id           TEXT NOT NULL DEFAULT '',
	degraded           INTEGER NOT NULL DEFAULT 0,
	created_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS campaign_targets (
	campaign_id   TEXT NOT NULL,
	campaign_type TEXT NOT NULL,
	position      INTEGER NOT NULL,
	lead_id       TEXT NOT NULL,
	PRIMARY KEY (campaign_id, position)
);

CREATE INDEX IF NOT EXISTS idx_campaign_targets_lead ON campaign_targets(lead_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveLeads(ctx context.Context, businessID string, leads []model.EnrichedLead) ([]string, error) {
	if len(leads) == 0 {
		return []string{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO leads (id, business_id, source_key, lead, segment, qualification_score, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (business_id, source_key) DO UPDATE SET
			lead = excluded.lead,
			segment = excluded.segment,
			updated_at = excluded.updated_at
		RETURNING id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare save leads")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	ids := make([]string, len(leads))
	for i, l := range leads {
		id := uuid.New().String()
		l.LeadID = ""
		snapshot, err := json.Marshal(l)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal lead")
		}
		if err := stmt.QueryRowContext(ctx,
			id, businessID, sourceKey(l, id), string(snapshot), string(l.Segment),
			l.QualificationScore, string(model.LeadStatusNew), now, now,
		).Scan(&ids[i]); err != nil {
			return nil, eris.Wrapf(err, "sqlite: save lead %d", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit save leads")
	}
	return ids, nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.LeadRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, business_id, lead, qualification_score, status, created_at, updated_at FROM leads WHERE id = ?`,
		id,
	)
	rec, err := scanSQLiteLead(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: lead %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get lead %s", id)
	}
	return rec, nil
}

func (s *SQLiteStore) UpdateLead(ctx context.Context, id string, state model.LeadState) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET qualification_score = ?, status = ?, updated_at = ? WHERE id = ?`,
		state.QualificationScore, string(state.Status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead %s", id)
	}
	return checkRowsAffected(res, "lead", id)
}

// AddEngagementScore adds points to a lead's score and promotes a new lead
// to qualified once the score reaches qualifyAt. The increment runs first so
// the transaction holds the write lock before the status is checked. A
// competing writer gets SQLITE_BUSY rather than a lost increment.
func (s *SQLiteStore) AddEngagementScore(ctx context.Context, id string, points, qualifyAt int) (model.LeadState, model.LeadState, error) {
	var before, after model.LeadState

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return before, after, eris.Wrap(err, "sqlite: begin add engagement score")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	var status string
	err = tx.QueryRowContext(ctx,
		`UPDATE leads SET qualification_score = qualification_score + ?, updated_at = ? WHERE id = ?
		RETURNING qualification_score, status`,
		points, now, id,
	).Scan(&after.QualificationScore, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return before, after, eris.Wrapf(ErrNotFound, "sqlite: lead %s", id)
		}
		return before, after, eris.Wrapf(err, "sqlite: add engagement score %s", id)
	}
	before = model.LeadState{QualificationScore: after.QualificationScore - points, Status: model.LeadStatus(status)}
	after = before.AddScore(points, qualifyAt)

	if after.Status != before.Status {
		if _, err := tx.ExecContext(ctx,
			`UPDATE leads SET status = ? WHERE id = ?`,
			string(after.Status), id,
		); err != nil {
			return before, after, eris.Wrapf(err, "sqlite: promote lead %s", id)
		}
	}

	if err := tx.Commit(); err != nil {
		return before, after, eris.Wrapf(err, "sqlite: commit add engagement score %s", id)
	}
	return before, after, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.LeadRecord, error) {
	query := `SELECT id, business_id, lead, qualification_score, status, created_at, updated_at FROM leads WHERE 1=1`
	var args []any

	if filter.BusinessID != "" {
		query += ` AND business_id = ?`
		args = append(args, filter.BusinessID)
	}
	if filter.Segment != "" {
		query += ` AND segment = ?`
		args = append(args, string(filter.Segment))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, rowid`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT %d`, limit)
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET %d`, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.LeadRecord
	for rows.Next() {
		rec, err := scanSQLiteLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) InsertEmailCampaign(ctx context.Context, c model.EmailCampaign) (string, error) {
	if c.TargetSegment != model.SegmentCold {
		return "", eris.Errorf("sqlite: email campaign must target cold leads, got %q", c.TargetSegment)
	}
	id := campaignID(c.ID)
	touches, err := json.Marshal(c.Touches)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal touches")
	}
	metrics, err := json.Marshal(c.Metrics)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal email metrics")
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO email_campaigns (id, business_id, name, status, touches, target_segment, metrics, degraded, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, c.BusinessID, c.Name, string(c.Status), string(touches), string(c.TargetSegment), string(metrics), c.Degraded, createdAt(c.CreatedAt),
		); err != nil {
			return eris.Wrap(err, "sqlite: insert email campaign")
		}
		return insertTargets(ctx, tx, id, campaignTypeEmail, c.TargetLeadIDs)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteStore) InsertVoiceCampaign(ctx context.Context, c model.VoiceCampaign) (string, error) {
	if c.TargetSegment != model.SegmentWarm && c.TargetSegment != model.SegmentHot {
		return "", eris.Errorf("sqlite: voice campaign must target warm or hot leads, got %q", c.TargetSegment)
	}
	id := campaignID(c.ID)
	objections, err := json.Marshal(c.ObjectionHandling)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal objection handling")
	}
	metrics, err := json.Marshal(c.Metrics)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal voice metrics")
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO voice_campaigns (id, business_id, name, status, greeting_script, pitch_script, objection_handling,
			 closing_script, target_segment, metrics, agent_id, degraded, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, c.BusinessID, c.Name, string(c.Status), c.GreetingScript, c.PitchScript, string(objections),
			c.ClosingScript, string(c.TargetSegment), string(metrics), c.AgentID, c.Degraded, createdAt(c.CreatedAt),
		); err != nil {
			return eris.Wrap(err, "sqlite: insert voice campaign")
		}
		return insertTargets(ctx, tx, id, campaignTypeVoice, c.TargetLeadIDs)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteStore) GetEmailCampaign(ctx context.Context, id string) (*model.EmailCampaign, error) {
	var c model.EmailCampaign
	var touches, metrics string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, business_id, name, status, touches, target_segment, metrics, degraded, created_at
		 FROM email_campaigns WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.BusinessID, &c.Name, &c.Status, &touches, &c.TargetSegment, &metrics, &c.Degraded, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: email campaign %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get email campaign %s", id)
	}
	if err := json.Unmarshal([]byte(touches), &c.Touches); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal touches")
	}
	if err := json.Unmarshal([]byte(metrics), &c.Metrics); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal email metrics")
	}
	if c.TargetLeadIDs, err = s.targets(ctx, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteStore) GetVoiceCampaign(ctx context.Context, id string) (*model.VoiceCampaign, error) {
	var c model.VoiceCampaign
	var objections, metrics string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, business_id, name, status, greeting_script, pitch_script, objection_handling, closing_script,
		 target_segment, metrics, agent_id, degraded, created_at FROM voice_campaigns WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.BusinessID, &c.Name, &c.Status, &c.GreetingScript, &c.PitchScript, &objections, &c.ClosingScript,
		&c.TargetSegment, &metrics, &c.AgentID, &c.Degraded, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: voice campaign %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get voice campaign %s", id)
	}
	if err := json.Unmarshal([]byte(objections), &c.ObjectionHandling); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal objection handling")
	}
	if err := json.Unmarshal([]byte(metrics), &c.Metrics); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal voice metrics")
	}
	if c.TargetLeadIDs, err = s.targets(ctx, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteStore) targets(ctx context.Context, campaignID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT lead_id FROM campaign_targets WHERE campaign_id = ? ORDER BY position`,
		campaignID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get targets %s", campaignID)
	}
	defer rows.Close() //nolint:errcheck

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan target")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: get targets iterate")
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

func insertTargets(ctx context.Context, tx *sql.Tx, campaignID, campaignType string, leadIDs []string) error {
	for i, leadID := range leadIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO campaign_targets (campaign_id, campaign_type, position, lead_id) VALUES (?, ?, ?, ?)`,
			campaignID, campaignType, i, leadID,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert target %s", leadID)
		}
	}
	return nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func scanSQLiteLead(row scannable) (*model.LeadRecord, error) {
	var rec model.LeadRecord
	var snapshot string
	if err := row.Scan(&rec.ID, &rec.BusinessID, &snapshot, &rec.QualificationScore, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(snapshot), &rec.Lead); err != nil {
		return nil, eris.Wrap(err, "unmarshal lead snapshot")
	}
	rec.Lead.LeadID = rec.ID
	return &rec, nil
}
