package campaign

import (
	"fmt"

	"github.com/sells-group/leadflow/internal/model"
)

var standardObjections = map[string]string{
	model.ObjectionTooBusy:             "Totally understand. Would a quick 10-minute call later this week work better?",
	model.ObjectionNoBudget:            "That makes sense. Most of our customers see the service pay for itself within the first few months. Can I show you the numbers?",
	model.ObjectionNotDecisionMaker:    "No problem. Who would be the best person to speak with, and could you help me set up a short call with them?",
	model.ObjectionAlreadyHaveSolution: "Good to hear you have something in place. Many of our customers switched after comparing results side by side. Would a quick comparison be useful?",
	model.ObjectionNeedMoreInfo:        "Happy to send over a short overview. What's the best email, and can we follow up for 15 minutes afterward?",
}

// fallbackEmails is the standard three-touch sequence used when generation
// fails. Delays are 0, 4 and 10 days.
func fallbackEmails(sample model.EnrichedLead) []emailTouch {
	industry := orDefault(sample.CompanyIndustry, "local service")
	return []emailTouch{
		{
			Subject: fmt.Sprintf("Growing your %s business", industry),
			Body: fmt.Sprintf("Hi {{first_name}},\n\nRunning a %s business means juggling a lot at once. "+
				"We help teams like {{company_name}} win more customers without adding busywork.\n\n"+
				"Would it be worth a quick look at how?", industry),
			DelayDays:    0,
			CallToAction: "Reply to learn more",
		},
		{
			Subject: "How others in your industry are doing it",
			Body: fmt.Sprintf("Hi {{first_name}},\n\nOther %s businesses have used our service to save hours "+
				"every week and respond to customers faster. I'd be glad to share what worked for them.", industry),
			DelayDays:    4,
			CallToAction: "See a customer story",
		},
		{
			Subject: "Worth a 15-minute call?",
			Body: "Hi {{first_name}},\n\nI'll keep this short. If improving how {{company_name}} finds and keeps " +
				"customers is on your list this quarter, a 15-minute call is the fastest way to see if we're a fit.",
			DelayDays:    10,
			CallToAction: "Book a 15-minute call",
		},
	}
}

func fallbackScript(rep model.EnrichedLead) voiceScript {
	company := orDefault(rep.CompanyName, "your company")
	industry := orDefault(rep.CompanyIndustry, "local service")
	objections := make(map[string]string, len(standardObjections))
	for k, v := range standardObjections {
		objections[k] = v
	}
	return voiceScript{
		Greeting: fmt.Sprintf("Hi, this is a quick call for the owner of %s. Do you have a moment?", company),
		Pitch: fmt.Sprintf("We work with %s businesses to bring in more customers and cut down on admin time. "+
			"For a business like %s that typically means about $%.0f in value.", industry, company, rep.EstimatedDealValue),
		ObjectionHandling: objections,
		Closing:           "Could we set up a 15-minute discovery call? Would Tuesday morning or Thursday afternoon work better?",
	}
}
