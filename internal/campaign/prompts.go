package campaign

import (
	"fmt"
	"strings"

	"github.com/sells-group/leadflow/internal/model"
)

const systemPrompt = `You are an outbound copywriter for a company that sells services to small and medium businesses.
You write concise, specific, non-pushy outreach. Respond with a single JSON object and nothing else.`

func emailPrompt(sample model.EnrichedLead, leadCount int, painPoints []string) string {
	var b strings.Builder
	b.WriteString("Write a cold-lead email nurture sequence.\n\n")
	fmt.Fprintf(&b, "Audience: %d cold leads, mostly %s businesses (for example %s).\n",
		leadCount, orDefault(sample.CompanyIndustry, "local service"), orDefault(sample.CompanyName, "a local business"))
	if len(painPoints) > 0 {
		fmt.Fprintf(&b, "Their most common pain points: %s.\n", strings.Join(painPoints, "; "))
	}
	b.WriteString(`
Write exactly 5 emails:
1. Day 0 - awareness: introduce the problem space, no pitch.
2. Day 3 - education: a stat or short case study.
3. Day 7 - social proof: a customer testimonial.
4. Day 14 - value: a free tool, checklist or ROI estimate.
5. Day 21 - direct ask: book a short call.

Constraints:
- subject at most 50 characters
- body 150 to 200 words
- exactly one call to action per email
- use {{first_name}} and {{company_name}} personalization tokens

Return JSON:
{"emails": [{"subject": "string", "body": "string", "delayDays": 0, "callToAction": "string"}]}
delayDays is the number of days since the previous email.
`)
	return b.String()
}

func voicePrompt(rep model.EnrichedLead) string {
	var b strings.Builder
	b.WriteString("Write an outbound call script for a warm or hot lead.\n\n")
	fmt.Fprintf(&b, "- Industry: %s\n", orDefault(rep.CompanyIndustry, "local service"))
	fmt.Fprintf(&b, "- Company: %s\n", orDefault(rep.CompanyName, "unknown"))
	fmt.Fprintf(&b, "- Contact title: %s\n", orDefault(rep.JobTitle, "owner"))
	fmt.Fprintf(&b, "- Pain points: %s\n", joinOr(rep.Research.PainPoints, "unknown"))
	fmt.Fprintf(&b, "- Buying signals: %s\n", joinOr(rep.Research.BuyingSignals, "none noted"))
	fmt.Fprintf(&b, "- Estimated deal value: $%.0f\n", rep.EstimatedDealValue)
	b.WriteString(`
Write:
- greeting: about 15 seconds, names the caller's company and asks for a moment.
- pitch: about 45 seconds, tied to the specific pain points above.
- objectionHandling: one response for each of too_busy, no_budget, not_decision_maker, already_have_solution, need_more_info.
- closing: tries to book a 15-minute discovery call with two concrete time options.

Return JSON:
{"greeting": "string", "pitch": "string", "objectionHandling": {"too_busy": "string", "no_budget": "string", "not_decision_maker": "string", "already_have_solution": "string", "need_more_info": "string"}, "closing": "string"}
`)
	return b.String()
}

func joinOr(items []string, def string) string {
	if len(items) == 0 {
		return def
	}
	return strings.Join(items, "; ")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
