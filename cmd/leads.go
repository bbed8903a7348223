package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadflow/internal/model"
	"github.com/sells-group/leadflow/internal/store"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List persisted leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		businessID, _ := cmd.Flags().GetString("business-id")
		segment, _ := cmd.Flags().GetString("segment")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			BusinessID: businessID,
			Segment:    model.Segment(segment),
			Status:     model.LeadStatus(status),
			Limit:      limit,
		})
		if err != nil {
			return eris.Wrap(err, "list leads")
		}

		if asJSON {
			return printJSON(os.Stdout, leads)
		}
		if len(leads) == 0 {
			fmt.Fprintln(os.Stderr, "No leads found.")
			return nil
		}
		formatLeadsList(os.Stdout, leads)
		return nil
	},
}

var campaignCmd = &cobra.Command{
	Use:   "campaign <email|voice> <campaign-id>",
	Short: "Show a persisted campaign",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		switch args[0] {
		case "email":
			c, err := st.GetEmailCampaign(ctx, args[1])
			if err != nil {
				return eris.Wrap(err, "get email campaign")
			}
			return printJSON(os.Stdout, c)
		case "voice":
			c, err := st.GetVoiceCampaign(ctx, args[1])
			if err != nil {
				return eris.Wrap(err, "get voice campaign")
			}
			return printJSON(os.Stdout, c)
		default:
			return eris.Errorf("unknown campaign type %q (want email or voice)", args[0])
		}
	},
}

func formatLeadsList(w io.Writer, leads []model.LeadRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOMPANY\tCONTACT\tSEGMENT\tSCORE\tSTATUS\tCREATED")
	for _, l := range leads {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			shortID(l.ID),
			truncateText(l.Lead.CompanyName, 30),
			truncateText(l.Lead.FullName, 24),
			l.Lead.Segment,
			l.QualificationScore,
			l.Status,
			l.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	leadsCmd.Flags().String("business-id", "", "filter by business")
	leadsCmd.Flags().String("segment", "", "filter by segment (cold, warm, hot)")
	leadsCmd.Flags().String("status", "", "filter by status")
	leadsCmd.Flags().Int("limit", 100, "max leads to show")
	leadsCmd.Flags().Bool("json", false, "print JSON instead of a table")
	rootCmd.AddCommand(leadsCmd)
	rootCmd.AddCommand(campaignCmd)
}
