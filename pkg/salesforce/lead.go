package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// LeadObject is the SObject name for Salesforce leads.
const LeadObject = "Lead"

// Lead is the subset of a Salesforce Lead record read back during export.
type Lead struct {
	ID      string `json:"Id"`
	Email   string `json:"Email"`
	Company string `json:"Company"`
	Status  string `json:"Status"`
}

// maxEmailsPerQuery keeps the SOQL IN clause well under the query length limit.
const maxEmailsPerQuery = 100

// FindLeadsByEmail returns existing lead IDs keyed by lower-cased email.
// Blank emails are ignored.
func FindLeadsByEmail(ctx context.Context, c Client, emails []string) (map[string]string, error) {
	seen := make(map[string]bool, len(emails))
	var quoted []string
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		quoted = append(quoted, "'"+escapeSoql(e)+"'")
	}

	found := make(map[string]string, len(quoted))
	for start := 0; start < len(quoted); start += maxEmailsPerQuery {
		end := min(start+maxEmailsPerQuery, len(quoted))
		soql := fmt.Sprintf(
			"SELECT Id, Email, Company, Status FROM Lead WHERE IsConverted = false AND Email IN (%s)",
			strings.Join(quoted[start:end], ", "),
		)

		var leads []Lead
		if err := c.Query(ctx, soql, &leads); err != nil {
			return found, eris.Wrap(err, "sf: find leads by email")
		}
		for _, l := range leads {
			key := strings.ToLower(l.Email)
			if _, dup := found[key]; !dup {
				found[key] = l.ID
			}
		}
	}
	return found, nil
}

// InsertLeads creates lead records in batches of at most batchSize.
// On a batch error the results gathered so far are returned with the error.
func InsertLeads(ctx context.Context, c Client, records []map[string]any, batchSize int) ([]CollectionResult, error) {
	batchSize = clampBatch(batchSize)
	var all []CollectionResult
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		results, err := c.InsertCollection(ctx, LeadObject, records[start:end])
		if err != nil {
			return all, eris.Wrap(err, fmt.Sprintf("sf: insert leads batch %d-%d", start, end))
		}
		all = append(all, results...)
	}
	return all, nil
}

// UpdateLeads updates lead records in batches of at most batchSize.
func UpdateLeads(ctx context.Context, c Client, records []CollectionRecord, batchSize int) ([]CollectionResult, error) {
	batchSize = clampBatch(batchSize)
	var all []CollectionResult
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		results, err := c.UpdateCollection(ctx, LeadObject, records[start:end])
		if err != nil {
			return all, eris.Wrap(err, fmt.Sprintf("sf: update leads batch %d-%d", start, end))
		}
		all = append(all, results...)
	}
	return all, nil
}

func clampBatch(n int) int {
	if n <= 0 || n > maxBatchSize {
		return maxBatchSize
	}
	return n
}

// escapeSoql escapes backslashes and single quotes in SOQL string literals.
func escapeSoql(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
