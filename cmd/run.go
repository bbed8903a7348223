package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadflow/internal/monitoring"
)

var (
	runBusinessID string
	runFlags      criteriaFlags
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search, enrich, save and create campaigns for a business",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		criteria, err := runFlags.load()
		if err != nil {
			return err
		}

		env, err := initRunner(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.Runner.Run(ctx, runBusinessID, criteria)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("run complete",
			zap.String("business_id", runBusinessID),
			zap.Int("searched", summary.Searched),
			zap.Int("enriched", summary.Enriched),
			zap.Int("degraded", summary.Degraded),
			zap.Int("saved", summary.Saved),
			zap.String("email_campaign", summary.EmailCampaignID),
			zap.String("voice_campaign", summary.VoiceCampaignID),
		)

		alerter := monitoring.NewAlerter(cfg.Monitoring)
		if alerts := alerter.Evaluate(summary); len(alerts) > 0 {
			for _, a := range alerts {
				zap.L().Warn("run alert", zap.String("type", string(a.Type)), zap.String("message", a.Message))
			}
			alerter.SendAlerts(ctx, alerts)
		}
		return printJSON(os.Stdout, summary)
	},
}

func init() {
	runCmd.Flags().StringVar(&runBusinessID, "business-id", "", "business the leads and campaigns belong to (required)")
	_ = runCmd.MarkFlagRequired("business-id")
	runFlags.register(runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}
