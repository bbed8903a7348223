// Package crm exports hot leads to Salesforce.
package crm

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadflow/internal/model"
	"github.com/sells-group/leadflow/pkg/salesforce"
)

// DefaultLeadSource tags leads created by the export.
const DefaultLeadSource = "leadflow"

// Exporter pushes hot leads into Salesforce as Lead records.
type Exporter struct {
	client     salesforce.Client
	batchSize  int
	leadSource string

	lengthsOnce sync.Once
	lengths     map[string]int
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithBatchSize sets the collection batch size. Values outside 1..200 use 200.
func WithBatchSize(n int) Option {
	return func(e *Exporter) { e.batchSize = n }
}

// WithLeadSource overrides the LeadSource value written on new leads.
func WithLeadSource(s string) Option {
	return func(e *Exporter) {
		if s != "" {
			e.leadSource = s
		}
	}
}

// New creates an Exporter over a Salesforce client.
func New(client salesforce.Client, opts ...Option) *Exporter {
	e := &Exporter{client: client, leadSource: DefaultLeadSource}
	for _, o := range opts {
		o(e)
	}
	return e
}

type pending struct {
	lead   model.EnrichedLead
	fields map[string]any
}

// ExportHotLeads upserts the hot leads by email and returns how many were
// written successfully. Non-hot leads are ignored. Per-record failures are
// logged and do not fail the export; a failed API call does.
func (e *Exporter) ExportHotLeads(ctx context.Context, leads []model.EnrichedLead) (int, error) {
	log := zap.L().With(zap.String("component", "crm"))

	lengths := e.fieldLengths(ctx)
	var batch []pending
	var emails []string
	seen := make(map[string]bool)
	for _, l := range leads {
		if l.Segment != model.SegmentHot {
			continue
		}
		if key := strings.ToLower(strings.TrimSpace(l.Email)); key != "" {
			if seen[key] {
				log.Debug("crm: skipping duplicate email in export", zap.String("lead", l.TargetID()))
				continue
			}
			seen[key] = true
			emails = append(emails, key)
		}
		batch = append(batch, pending{lead: l, fields: leadFields(l, e.leadSource, lengths)})
	}
	if len(batch) == 0 {
		return 0, nil
	}

	existing, err := salesforce.FindLeadsByEmail(ctx, e.client, emails)
	if err != nil {
		return 0, eris.Wrap(err, "crm: look up existing leads")
	}

	var (
		updates     []salesforce.CollectionRecord
		updateLeads []model.EnrichedLead
		inserts     []map[string]any
		insertLeads []model.EnrichedLead
	)
	for _, p := range batch {
		if id, ok := existing[strings.ToLower(strings.TrimSpace(p.lead.Email))]; ok {
			updates = append(updates, salesforce.CollectionRecord{ID: id, Fields: updateFields(p.fields)})
			updateLeads = append(updateLeads, p.lead)
			continue
		}
		inserts = append(inserts, p.fields)
		insertLeads = append(insertLeads, p.lead)
	}

	var firstErr error
	written := 0
	if len(updates) > 0 {
		results, err := salesforce.UpdateLeads(ctx, e.client, updates, e.batchSize)
		written += tally(log, "update", results, updateLeads)
		if err != nil {
			firstErr = eris.Wrap(err, "crm: update leads")
		}
	}
	if len(inserts) > 0 {
		results, err := salesforce.InsertLeads(ctx, e.client, inserts, e.batchSize)
		written += tally(log, "insert", results, insertLeads)
		if err != nil && firstErr == nil {
			firstErr = eris.Wrap(err, "crm: insert leads")
		}
	}

	log.Info("crm: exported hot leads",
		zap.Int("candidates", len(batch)),
		zap.Int("updated", len(updates)),
		zap.Int("inserted", len(inserts)),
		zap.Int("written", written),
	)
	return written, firstErr
}

// tally counts successful results and logs each failed record.
func tally(log *zap.Logger, op string, results []salesforce.CollectionResult, leads []model.EnrichedLead) int {
	ok := 0
	for i, r := range results {
		if r.Success {
			ok++
			continue
		}
		var id string
		if i < len(leads) {
			id = leads[i].TargetID()
		}
		log.Warn("crm: record rejected",
			zap.String("op", op),
			zap.String("lead", id),
			zap.Strings("errors", r.Errors),
		)
	}
	return ok
}

// fieldLengths describes the Lead object once. Describe failures fall back
// to the standard lengths and are not retried.
func (e *Exporter) fieldLengths(ctx context.Context) map[string]int {
	e.lengthsOnce.Do(func() {
		e.lengths = defaultLengths
		desc, err := e.client.DescribeSObject(ctx, salesforce.LeadObject)
		if err != nil {
			zap.L().Warn("crm: describe lead failed, using default field lengths", zap.Error(err))
			return
		}
		lengths := desc.FieldLengths()
		if len(lengths) > 0 {
			e.lengths = lengths
		}
	})
	return e.lengths
}
