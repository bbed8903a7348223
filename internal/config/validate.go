package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks the settings a command mode needs. Modes: search, run,
// engage, serve.
func (c *Config) Validate(mode string) error {
	var problems []string
	need := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch mode {
	case "search":
		need(c.Apollo.Key != "", "apollo.key is required")
	case "run":
		need(c.Apollo.Key != "", "apollo.key is required")
		need(c.Store.DatabaseURL != "", "store.database_url is required")
		switch c.AI.Provider {
		case "anthropic", "":
			need(c.AI.Anthropic.Key != "", "ai.anthropic.key is required")
		case "gemini":
			need(c.AI.Gemini.Key != "", "ai.gemini.key is required")
		default:
			problems = append(problems, "ai.provider must be anthropic or gemini")
		}
		need(c.Enrich.Concurrency >= 1 && c.Enrich.Concurrency <= 50, "enrich.concurrency must be between 1 and 50")
		need(!c.Pipeline.ExportHotLeads || c.Salesforce.Enabled(), "salesforce settings are required when pipeline.export_hot_leads is set")
	case "engage":
		need(c.Store.DatabaseURL != "", "store.database_url is required")
	case "serve":
		need(c.Store.DatabaseURL != "", "store.database_url is required")
		need(c.Server.Port > 0, "server.port must be > 0")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "postgres", "sqlite", "":
	default:
		problems = append(problems, "store.driver must be postgres or sqlite")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
