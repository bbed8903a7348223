package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var searchFlags criteriaFlags

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search for prospects without enriching them",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("search"); err != nil {
			return err
		}
		criteria, err := searchFlags.load()
		if err != nil {
			return err
		}

		leads, err := initSearcher(cfg).SearchLeads(cmd.Context(), criteria)
		if err != nil {
			return eris.Wrap(err, "search leads")
		}

		zap.L().Info("search complete", zap.Int("leads", len(leads)))
		return printJSON(os.Stdout, leads)
	},
}

func init() {
	searchFlags.register(searchCmd.Flags())
	rootCmd.AddCommand(searchCmd)
}
