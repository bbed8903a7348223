// Package leadsource searches the contact provider and normalizes results
// into raw leads.
package leadsource

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/leadflow/internal/model"
	"github.com/sells-group/leadflow/pkg/apollo"
)

// Confidence assigned to a lead depending on the provider's email status.
const (
	ConfidenceVerified   = 95
	ConfidenceUnverified = 70
)

// maxPageSize mirrors the provider's per-page cap.
const maxPageSize = 100

// Searcher finds raw leads for criteria.
type Searcher interface {
	SearchLeads(ctx context.Context, criteria model.SearchCriteria) ([]model.RawLead, error)
}

// Source is the Apollo-backed Searcher.
type Source struct {
	apiKey  string
	client  apollo.Client
	timeout time.Duration
	nowFunc func() time.Time
}

// New creates a Source. client may be nil when apiKey is empty; SearchLeads
// then fails with a ConfigurationError.
func New(apiKey string, client apollo.Client, timeout time.Duration) *Source {
	return &Source{apiKey: apiKey, client: client, timeout: timeout, nowFunc: time.Now}
}

// SearchLeads runs the search and returns at most criteria.EffectiveLimit()
// leads. Provider errors are fatal and never retried.
func (s *Source) SearchLeads(ctx context.Context, criteria model.SearchCriteria) ([]model.RawLead, error) {
	if s.apiKey == "" || s.client == nil {
		return nil, &ConfigurationError{Setting: "apollo.key"}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	limit := criteria.EffectiveLimit()
	perPage := min(limit, maxPageSize)
	leads := make([]model.RawLead, 0, limit)

	for page := 1; len(leads) < limit; page++ {
		resp, err := s.client.SearchPeople(ctx, BuildQuery(criteria, page, perPage))
		if err != nil {
			var se *apollo.StatusError
			if errors.As(err, &se) {
				return nil, &SearchError{StatusCode: se.StatusCode, Body: se.Body}
			}
			return nil, eris.Wrap(err, "leadsource: search people")
		}

		for _, p := range resp.People {
			if len(leads) == limit {
				break
			}
			leads = append(leads, s.toRawLead(p))
		}

		if len(resp.People) < perPage || (resp.Pagination.TotalPages > 0 && page >= resp.Pagination.TotalPages) {
			break
		}
	}

	zap.L().Info("leadsource: search complete",
		zap.Int("leads", len(leads)),
		zap.Int("limit", limit),
	)
	return leads, nil
}

func (s *Source) toRawLead(p apollo.Person) model.RawLead {
	first := normalizeName(p.FirstName)
	last := normalizeName(p.LastName)
	full := normalizeName(p.Name)
	if full == "" {
		full = strings.TrimSpace(first + " " + last)
	}

	lead := model.RawLead{
		FirstName:  first,
		LastName:   last,
		FullName:   full,
		Email:      p.Email,
		JobTitle:   p.Title,
		ProfileURL: p.LinkedInURL,
		City:       p.City,
		State:      p.State,
		Country:    p.Country,
		SourceID:   p.ID,
		Confidence: ConfidenceUnverified,
	}
	if p.EmailVerified() {
		lead.Confidence = ConfidenceVerified
	}
	for _, ph := range p.PhoneNumbers {
		if n := firstNonEmpty(ph.SanitizedNumber, ph.RawNumber); n != "" {
			lead.Phone = n
			break
		}
	}

	if org := p.Organization; org != nil {
		lead.CompanyName = org.Name
		lead.CompanyDomain = firstNonEmpty(org.PrimaryDomain, domainOf(org.WebsiteURL))
		lead.CompanyPhone = org.Phone
		lead.CompanyIndustry = org.Industry
		lead.CompanyEmployees = org.EstimatedNumEmployees
		lead.CompanyRevenue = org.AnnualRevenuePrinted
		lead.CompanyDescription = org.ShortDescription
	}

	lead.LastUpdated = s.nowFunc().UTC()
	if t, err := time.Parse(time.RFC3339, p.UpdatedAt); err == nil {
		lead.LastUpdated = t.UTC()
	}
	return lead
}

// normalizeName title-cases names that arrive all upper or all lower case
// and leaves mixed-case names ("McDonald", "DeVito") alone.
func normalizeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	hasUpper, hasLower := false, false
	for _, r := range s {
		hasUpper = hasUpper || unicode.IsUpper(r)
		hasLower = hasLower || unicode.IsLower(r)
	}
	if hasUpper && hasLower {
		return s
	}
	return cases.Title(language.English).String(s)
}

func domainOf(raw string) string {
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
