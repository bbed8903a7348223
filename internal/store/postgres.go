package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow/internal/db"
	"github.com/sells-group/leadflow/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var leadColumns = []string{
	"id", "business_id", "source_key", "lead", "segment",
	"qualification_score", "status", "created_at", "updated_at",
}

var targetColumns = []string{"campaign_id", "campaign_type", "position", "lead_id"}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id                  TEXT PRIMARY KEY,
	business_id         TEXT NOT NULL,
	source_key          TEXT NOT NULL,
	lead                JSONB NOT NULL,
	segment             TEXT NOT NULL,
	qualification_score INTEGER NOT NULL DEFAULT 0,
	status              TEXT NOT NULL DEFAULT 'new',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (business_id, source_key)
);

CREATE INDEX IF NOT EXISTS idx_leads_business_segment ON leads(business_id, segment);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);

CREATE TABLE IF NOT EXISTS email_campaigns (
	id             TEXT PRIMARY KEY,
	business_id    TEXT NOT NULL,
	name           TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'draft',
	touches        JSONB NOT NULL,
	target_segment TEXT NOT NULL CHECK (target_segment = 'cold'),
	metrics        JSONB NOT NULL DEFAULT '{}',
	degraded       BOOLEAN NOT NULL DEFAULT false,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS voice_campaigns (
	id                 TEXT PRIMARY KEY,
	business_id        TEXT NOT NULL,
	name               TEXT NOT NULL,
	status             TEXT NOT NULL DEFAULT 'draft',
	greeting_script    TEXT NOT NULL,
	pitch_script       TEXT NOT NULL,
	objection_handling JSONB NOT NULL,
	closing_script     TEXT NOT NULL,
	target_segment     TEXT NOT NULL CHECK (target_segment IN ('warm', 'hot')),
	metrics            JSONB NOT NULL DEFAULT '{}',
	agent_id           TEXT NOT NULL DEFAULT '',
	degraded           BOOLEAN NOT NULL DEFAULT false,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_email_campaigns_business ON email_campaigns(business_id);
CREATE INDEX IF NOT EXISTS idx_voice_campaigns_business ON voice_campaigns(business_id);

CREATE TABLE IF NOT EXISTS campaign_targets (
	campaign_id   TEXT NOT NULL,
	campaign_type TEXT NOT NULL,
	position      INTEGER NOT NULL,
	lead_id       TEXT NOT NULL,
	PRIMARY KEY (campaign_id, position)
);

CREATE INDEX IF NOT EXISTS idx_campaign_targets_lead ON campaign_targets(lead_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// SaveLeads upserts leads keyed by (business, provider id) and returns their
// persisted ids in input order. Re-saving a lead refreshes its enrichment
// snapshot but keeps the score and status owned by engagement tracking.
func (s *PostgresStore) SaveLeads(ctx context.Context, businessID string, leads []model.EnrichedLead) ([]string, error) {
	if len(leads) == 0 {
		return []string{}, nil
	}

	now := time.Now().UTC()
	keys := make([]string, len(leads))
	seen := make(map[string]bool, len(leads))
	rows := make([][]any, 0, len(leads))
	for i, l := range leads {
		id := uuid.New().String()
		keys[i] = sourceKey(l, id)
		if seen[keys[i]] {
			continue
		}
		seen[keys[i]] = true

		l.LeadID = ""
		snapshot, err := json.Marshal(l)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal lead")
		}
		rows = append(rows, []any{
			id, businessID, keys[i], snapshot, string(l.Segment),
			l.QualificationScore, string(model.LeadStatusNew), now, now,
		})
	}

	if _, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "leads",
		Columns:      leadColumns,
		ConflictKeys: []string{"business_id", "source_key"},
		UpdateCols:   []string{"lead", "segment", "updated_at"},
	}, rows); err != nil {
		return nil, eris.Wrap(err, "postgres: save leads")
	}

	res, err := s.pool.Query(ctx,
		`SELECT id, source_key FROM leads WHERE business_id = $1 AND source_key = ANY($2)`,
		businessID, keys,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: resolve lead ids")
	}
	defer res.Close()

	byKey := make(map[string]string, len(keys))
	for res.Next() {
		var id, key string
		if err := res.Scan(&id, &key); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead id")
		}
		byKey[key] = id
	}
	if err := res.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: resolve lead ids iterate")
	}

	return orderedIDs(keys, byKey)
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.LeadRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, business_id, lead, qualification_score, status, created_at, updated_at FROM leads WHERE id = $1`,
		id,
	)
	rec, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: lead %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get lead %s", id)
	}
	return rec, nil
}

func (s *PostgresStore) UpdateLead(ctx context.Context, id string, state model.LeadState) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET qualification_score = $1, status = $2, updated_at = $3 WHERE id = $4`,
		state.QualificationScore, string(state.Status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: lead %s", id)
	}
	return nil
}

// AddEngagementScore adds points to a lead's score in one statement and
// promotes a new lead to qualified once the score reaches qualifyAt. The row
// lock taken by the CTE serializes concurrent writers across processes.
func (s *PostgresStore) AddEngagementScore(ctx context.Context, id string, points, qualifyAt int) (model.LeadState, model.LeadState, error) {
	var before, after model.LeadState
	var prevStatus, status string
	err := s.pool.QueryRow(ctx,
		`WITH prev AS (
			SELECT id, qualification_score, status FROM leads WHERE id = $1 FOR UPDATE
		)
		UPDATE leads l SET
			qualification_score = prev.qualification_score + $2,
			status = CASE WHEN prev.status = $3 AND prev.qualification_score + $2 >= $4 THEN $5 ELSE prev.status END,
			updated_at = $6
		FROM prev WHERE l.id = prev.id
		RETURNING prev.qualification_score, prev.status, l.qualification_score, l.status`,
		id, points, string(model.LeadStatusNew), qualifyAt, string(model.LeadStatusQualified), time.Now().UTC(),
	).Scan(&before.QualificationScore, &prevStatus, &after.QualificationScore, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return before, after, eris.Wrapf(ErrNotFound, "postgres: lead %s", id)
		}
		return before, after, eris.Wrapf(err, "postgres: add engagement score %s", id)
	}
	before.Status = model.LeadStatus(prevStatus)
	after.Status = model.LeadStatus(status)
	return before, after, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.LeadRecord, error) {
	query := `SELECT id, business_id, lead, qualification_score, status, created_at, updated_at FROM leads WHERE true`
	args := []any{}
	argIdx := 1

	if filter.BusinessID != "" {
		query += fmt.Sprintf(` AND business_id = $%d`, argIdx)
		args = append(args, filter.BusinessID)
		argIdx++
	}
	if filter.Segment != "" {
		query += fmt.Sprintf(` AND segment = $%d`, argIdx)
		args = append(args, string(filter.Segment))
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var out []model.LeadRecord
	for rows.Next() {
		rec, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) InsertEmailCampaign(ctx context.Context, c model.EmailCampaign) (string, error) {
	if c.TargetSegment != model.SegmentCold {
		return "", eris.Errorf("postgres: email campaign must target cold leads, got %q", c.TargetSegment)
	}
	id := campaignID(c.ID)
	touches, err := json.Marshal(c.Touches)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal touches")
	}
	metrics, err := json.Marshal(c.Metrics)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal email metrics")
	}

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO email_campaigns (id, business_id, name, status, touches, target_segment, metrics, degraded, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			id, c.BusinessID, c.Name, string(c.Status), touches, string(c.TargetSegment), metrics, c.Degraded, createdAt(c.CreatedAt),
		); err != nil {
			return eris.Wrap(err, "postgres: insert email campaign")
		}
		_, err := db.CopyFrom(ctx, tx, "campaign_targets", targetColumns, targetRows(id, campaignTypeEmail, c.TargetLeadIDs))
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *PostgresStore) InsertVoiceCampaign(ctx context.Context, c model.VoiceCampaign) (string, error) {
	if c.TargetSegment != model.SegmentWarm && c.TargetSegment != model.SegmentHot {
		return "", eris.Errorf("postgres: voice campaign must target warm or hot leads, got %q", c.TargetSegment)
	}
	id := campaignID(c.ID)
	objections, err := json.Marshal(c.ObjectionHandling)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal objection handling")
	}
	metrics, err := json.Marshal(c.Metrics)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal voice metrics")
	}

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO voice_campaigns (id, business_id, name, status, greeting_script, pitch_script, objection_handling,
			 closing_script, target_segment, metrics, agent_id, degraded, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			id, c.BusinessID, c.Name, string(c.Status), c.GreetingScript, c.PitchScript, objections,
			c.ClosingScript, string(c.TargetSegment), metrics, c.AgentID, c.Degraded, createdAt(c.CreatedAt),
		); err != nil {
			return eris.Wrap(err, "postgres: insert voice campaign")
		}
		_, err := db.CopyFrom(ctx, tx, "campaign_targets", targetColumns, targetRows(id, campaignTypeVoice, c.TargetLeadIDs))
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *PostgresStore) GetEmailCampaign(ctx context.Context, id string) (*model.EmailCampaign, error) {
	var c model.EmailCampaign
	var touches, metrics []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, business_id, name, status, touches, target_segment, metrics, degraded, created_at
		 FROM email_campaigns WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.BusinessID, &c.Name, &c.Status, &touches, &c.TargetSegment, &metrics, &c.Degraded, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: email campaign %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get email campaign %s", id)
	}
	if err := json.Unmarshal(touches, &c.Touches); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal touches")
	}
	if err := json.Unmarshal(metrics, &c.Metrics); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal email metrics")
	}
	if c.TargetLeadIDs, err = s.targets(ctx, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) GetVoiceCampaign(ctx context.Context, id string) (*model.VoiceCampaign, error) {
	var c model.VoiceCampaign
	var objections, metrics []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, business_id, name, status, greeting_script, pitch_script, objection_handling, closing_script,
		 target_segment, metrics, agent_id, degraded, created_at FROM voice_campaigns WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.BusinessID, &c.Name, &c.Status, &c.GreetingScript, &c.PitchScript, &objections, &c.ClosingScript,
		&c.TargetSegment, &metrics, &c.AgentID, &c.Degraded, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: voice campaign %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get voice campaign %s", id)
	}
	if err := json.Unmarshal(objections, &c.ObjectionHandling); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal objection handling")
	}
	if err := json.Unmarshal(metrics, &c.Metrics); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal voice metrics")
	}
	if c.TargetLeadIDs, err = s.targets(ctx, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) targets(ctx context.Context, campaignID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT lead_id FROM campaign_targets WHERE campaign_id = $1 ORDER BY position`,
		campaignID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get targets %s", campaignID)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan target")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "postgres: get targets iterate")
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit tx")
}

func scanLead(row scannable) (*model.LeadRecord, error) {
	var rec model.LeadRecord
	var snapshot []byte
	if err := row.Scan(&rec.ID, &rec.BusinessID, &snapshot, &rec.QualificationScore, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(snapshot, &rec.Lead); err != nil {
		return nil, eris.Wrap(err, "unmarshal lead snapshot")
	}
	rec.Lead.LeadID = rec.ID
	return &rec, nil
}

func targetRows(campaignID, campaignType string, leadIDs []string) [][]any {
	rows := make([][]any, len(leadIDs))
	for i, id := range leadIDs {
		rows[i] = []any{campaignID, campaignType, i, id}
	}
	return rows
}

func orderedIDs(keys []string, byKey map[string]string) ([]string, error) {
	ids := make([]string, len(keys))
	for i, k := range keys {
		id, ok := byKey[k]
		if !ok {
			return nil, eris.Errorf("lead %s was not persisted", k)
		}
		ids[i] = id
	}
	return ids, nil
}

func campaignID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

func createdAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

type scannable interface {
	Scan(dest ...any) error
}
