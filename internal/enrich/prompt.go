package enrich

import (
	"fmt"
	"strings"

	"github.com/sells-group/leadflow/internal/model"
)

const systemPrompt = `You are a B2B sales research analyst for a company selling services to small and medium businesses.
You research one prospect at a time and judge how ready they are to buy.
Respond with a single JSON object and nothing else.`

const researchSchema = `{
  "painPoints": ["string"],
  "buyingSignals": ["string"],
  "decisionMakers": ["string"],
  "competitorInfo": "string",
  "recentNews": ["string"],
  "outreachStrategy": "string",
  "emailSubject": "string",
  "voicePitch": "string",
  "qualificationScore": 0,
  "confidence": 0
}`

func buildPrompt(l model.RawLead) string {
	var b strings.Builder
	b.WriteString("Research this prospect and qualify them.\n\n")
	b.WriteString("COMPANY\n")
	fmt.Fprintf(&b, "- Name: %s\n", orUnknown(l.CompanyName))
	fmt.Fprintf(&b, "- Domain: %s\n", orUnknown(l.CompanyDomain))
	fmt.Fprintf(&b, "- Industry: %s\n", orUnknown(l.CompanyIndustry))
	fmt.Fprintf(&b, "- Employees: %s\n", employees(l.CompanyEmployees))
	fmt.Fprintf(&b, "- Revenue: %s\n", orUnknown(l.CompanyRevenue))
	fmt.Fprintf(&b, "- Description: %s\n", orUnknown(l.CompanyDescription))
	b.WriteString("\nCONTACT\n")
	fmt.Fprintf(&b, "- Name: %s\n", orUnknown(l.FullName))
	fmt.Fprintf(&b, "- Title: %s\n", orUnknown(l.JobTitle))
	fmt.Fprintf(&b, "- Location: %s\n", orUnknown(location(l)))
	b.WriteString("\nReturn JSON with exactly these fields:\n")
	b.WriteString(researchSchema)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- qualificationScore is 0-100: 75+ ready to buy now, 50-74 interested, below 50 needs nurturing.\n")
	b.WriteString("- confidence is 0-100 and reflects how much of the research is grounded in the facts above.\n")
	b.WriteString("- emailSubject is at most 50 characters.\n")
	b.WriteString("- voicePitch is two sentences a caller can say in under 20 seconds.\n")
	return b.String()
}

func location(l model.RawLead) string {
	var parts []string
	for _, p := range []string{l.City, l.State, l.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func employees(n int) string {
	if n <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%d", n)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
