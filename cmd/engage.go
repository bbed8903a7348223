package main

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadflow/internal/engagement"
	"github.com/sells-group/leadflow/internal/model"
)

var (
	engageLeadID string
	engageEvent  string
)

var engageCmd = &cobra.Command{
	Use:   "engage",
	Short: "Record an email engagement event for a lead",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("engage"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ev := engagement.Event(strings.ToLower(strings.TrimSpace(engageEvent)))
		tracker := engagement.NewTracker(st, engagement.WithPromotionHook(logPromotion))
		if err := tracker.TrackEmailEngagement(ctx, engageLeadID, ev); err != nil {
			return eris.Wrap(err, "track engagement")
		}

		rec, err := st.GetLead(ctx, engageLeadID)
		if err != nil {
			return eris.Wrap(err, "reload lead")
		}
		return printJSON(os.Stdout, model.LeadState{
			QualificationScore: rec.QualificationScore,
			Status:             rec.Status,
		})
	},
}

// logPromotion records a lead crossing the qualification threshold.
func logPromotion(_ context.Context, leadID string, state model.LeadState) {
	zap.L().Info("lead qualified",
		zap.String("lead_id", leadID),
		zap.Int("score", state.QualificationScore),
	)
}

func init() {
	engageCmd.Flags().StringVar(&engageLeadID, "lead-id", "", "persisted lead id (required)")
	engageCmd.Flags().StringVar(&engageEvent, "event", "", "opened, clicked or replied (required)")
	_ = engageCmd.MarkFlagRequired("lead-id")
	_ = engageCmd.MarkFlagRequired("event")
	rootCmd.AddCommand(engageCmd)
}
