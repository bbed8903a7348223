package leadsource

import (
	"strings"

	"github.com/sells-group/leadflow/internal/model"
	"github.com/sells-group/leadflow/pkg/apollo"
)

// DefaultJobTitles are searched when the criteria name none.
var DefaultJobTitles = []string{"Owner", "CEO", "President", "Manager", "Director"}

type sizeBucket struct {
	min, max int // max 0 means open-ended
	label    string
}

var sizeBuckets = []sizeBucket{
	{1, 10, "1-10"},
	{11, 50, "11-50"},
	{51, 200, "51-200"},
	{201, 500, "201-500"},
	{501, 1000, "501-1000"},
	{1001, 5000, "1001-5000"},
	{5001, 10000, "5001-10000"},
	{10001, 0, "10001+"},
}

// SizeBuckets returns every provider bucket overlapping r. A nil bound is
// open, so a range with no max always includes the top bucket.
func SizeBuckets(r *model.Range) []string {
	if r == nil || (r.Min == nil && r.Max == nil) {
		return nil
	}
	lo := 0
	if r.Min != nil {
		lo = *r.Min
	}

	var out []string
	for _, b := range sizeBuckets {
		if r.Max != nil && b.min > *r.Max {
			break
		}
		if b.max != 0 && b.max < lo {
			continue
		}
		out = append(out, b.label)
	}
	return out
}

// LocationFilter collapses a location into the single value the provider
// is queried with. When both city and state are set the state wins and the
// city is dropped.
func LocationFilter(loc *model.Location) string {
	if loc == nil {
		return ""
	}
	value := strings.TrimSpace(loc.City)
	if s := strings.TrimSpace(loc.State); s != "" {
		value = s
	}
	if value == "" {
		value = strings.TrimSpace(loc.Country)
	}
	return value
}

// BuildQuery maps criteria to a provider search request for one page.
func BuildQuery(c model.SearchCriteria, page, perPage int) apollo.PeopleSearchRequest {
	req := apollo.PeopleSearchRequest{
		Page:           page,
		PerPage:        perPage,
		PersonTitles:   c.JobTitles,
		EmployeeRanges: SizeBuckets(c.CompanySize),
	}
	if len(req.PersonTitles) == 0 {
		req.PersonTitles = DefaultJobTitles
	}
	if loc := LocationFilter(c.Location); loc != "" {
		req.PersonLocations = []string{loc}
	}
	if len(c.Industries) > 0 {
		req.OrganizationIndustry = c.Industries
	}
	if len(c.Keywords) > 0 {
		req.Keywords = strings.Join(c.Keywords, " ")
	}
	if c.Revenue != nil && (c.Revenue.Min != nil || c.Revenue.Max != nil) {
		req.RevenueRange = &apollo.RevenueSpan{Min: c.Revenue.Min, Max: c.Revenue.Max}
	}
	return req
}
