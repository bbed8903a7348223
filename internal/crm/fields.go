package crm

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/leadflow/internal/model"
)

// RatingHot is the Salesforce Lead rating set on every exported lead.
const RatingHot = "Hot"

const unknown = "Unknown"

// defaultLengths are the standard Lead field lengths, used when the org's
// describe call is unavailable.
var defaultLengths = map[string]int{
	"FirstName":   40,
	"LastName":    80,
	"Company":     255,
	"Email":       80,
	"Phone":       40,
	"Title":       128,
	"Industry":    255,
	"City":        40,
	"State":       80,
	"Country":     80,
	"Website":     255,
	"LeadSource":  255,
	"Description": 32000,
}

// splitName returns first and last name, deriving them from the full name
// when the provider left them blank. LastName is required by Salesforce.
func splitName(l model.EnrichedLead) (string, string) {
	first, last := strings.TrimSpace(l.FirstName), strings.TrimSpace(l.LastName)
	if last == "" {
		parts := strings.Fields(l.FullName)
		if len(parts) > 0 {
			last = parts[len(parts)-1]
			if first == "" {
				first = strings.Join(parts[:len(parts)-1], " ")
			}
		}
	}
	if last == "" {
		last = unknown
	}
	return first, last
}

func description(l model.EnrichedLead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Qualification score: %d", l.QualificationScore)
	if l.EstimatedDealValue > 0 {
		fmt.Fprintf(&b, "\nEstimated deal value: $%.0f", l.EstimatedDealValue)
	}
	if len(l.Research.PainPoints) > 0 {
		fmt.Fprintf(&b, "\nPain points: %s", strings.Join(l.Research.PainPoints, "; "))
	}
	if len(l.Research.BuyingSignals) > 0 {
		fmt.Fprintf(&b, "\nBuying signals: %s", strings.Join(l.Research.BuyingSignals, "; "))
	}
	if s := strings.TrimSpace(l.Research.OutreachStrategy); s != "" {
		fmt.Fprintf(&b, "\nStrategy: %s", s)
	}
	return b.String()
}

// leadFields maps an enriched lead onto Salesforce Lead fields. Blank
// values are omitted so an update never clears data already in the CRM.
func leadFields(l model.EnrichedLead, source string, lengths map[string]int) map[string]any {
	first, last := splitName(l)
	company := strings.TrimSpace(l.CompanyName)
	if company == "" {
		company = unknown
	}
	phone := l.Phone
	if phone == "" {
		phone = l.CompanyPhone
	}

	fields := map[string]any{
		"LastName":    last,
		"Company":     company,
		"Rating":      RatingHot,
		"LeadSource":  source,
		"Description": description(l),
	}
	for k, v := range map[string]string{
		"FirstName": first,
		"Email":     strings.TrimSpace(l.Email),
		"Phone":     phone,
		"Title":     l.JobTitle,
		"Industry":  l.CompanyIndustry,
		"City":      l.City,
		"State":     l.State,
		"Country":   l.Country,
		"Website":   l.CompanyDomain,
	} {
		if v = strings.TrimSpace(v); v != "" {
			fields[k] = v
		}
	}
	if l.CompanyEmployees > 0 {
		fields["NumberOfEmployees"] = l.CompanyEmployees
	}

	for k, v := range fields {
		if s, ok := v.(string); ok {
			fields[k] = truncate(s, lengths[k])
		}
	}
	return fields
}

// updateFields is the subset refreshed on a lead that already exists.
func updateFields(all map[string]any) map[string]any {
	out := make(map[string]any, 4)
	for _, k := range []string{"Rating", "Description", "Title", "Phone"} {
		if v, ok := all[k]; ok {
			out[k] = v
		}
	}
	return out
}

// truncate cuts s to at most n runes. n <= 0 means unlimited.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
