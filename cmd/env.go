package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadflow/internal/agentcache"
	"github.com/sells-group/leadflow/internal/campaign"
	"github.com/sells-group/leadflow/internal/config"
	"github.com/sells-group/leadflow/internal/crm"
	"github.com/sells-group/leadflow/internal/enrich"
	"github.com/sells-group/leadflow/internal/leadsource"
	"github.com/sells-group/leadflow/internal/llm"
	"github.com/sells-group/leadflow/internal/pipeline"
	"github.com/sells-group/leadflow/internal/resilience"
	"github.com/sells-group/leadflow/internal/store"
	"github.com/sells-group/leadflow/pkg/apollo"
	"github.com/sells-group/leadflow/pkg/salesforce"
)

const defaultSQLitePath = "leadflow.db"

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		return store.NewSQLite(dsn)
	case "postgres", "":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens and migrates the configured store.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func initSearcher(c *config.Config) leadsource.Searcher {
	var client apollo.Client
	if c.Apollo.Key != "" {
		client = apollo.NewClient(c.Apollo.Key,
			apollo.WithBaseURL(c.Apollo.BaseURL),
			apollo.WithRateLimit(c.Apollo.RateLimit),
		)
	}
	return leadsource.New(c.Apollo.Key, client, secs(c.Search.TimeoutSecs))
}

func initAgentCache(ctx context.Context, c *config.Config) (agentcache.Cache, error) {
	cache := agentcache.NewMemory(time.Duration(c.AgentCache.TTLMinutes)*time.Minute, c.AgentCache.Seed)
	if err := cache.Init(ctx); err != nil {
		return nil, eris.Wrap(err, "init agent cache")
	}
	return cache, nil
}

func initExporter(c *config.Config) (*crm.Exporter, error) {
	client, err := salesforce.Connect(salesforce.Credentials{
		LoginURL: c.Salesforce.LoginURL,
		Username: c.Salesforce.Username,
		ClientID: c.Salesforce.ClientID,
		KeyPath:  c.Salesforce.KeyPath,
	}, salesforce.WithRateLimit(c.Salesforce.RateLimit))
	if err != nil {
		return nil, err
	}
	return crm.New(client, crm.WithBatchSize(c.Salesforce.BatchSize)), nil
}

// runEnv holds everything the run command needs. Callers should defer Close.
type runEnv struct {
	Store  store.Store
	Agents agentcache.Cache
	Runner *pipeline.Runner
}

// Close releases the agent cache and the store.
func (e *runEnv) Close() {
	if e.Agents != nil {
		_ = e.Agents.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initRunner wires search, enrichment, campaigns, persistence and the
// optional CRM export into a pipeline Runner.
func initRunner(ctx context.Context) (*runEnv, error) {
	if err := cfg.Validate("run"); err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &runEnv{Store: st}

	breakers := resilience.NewBreakers(resilience.FromCircuitConfig(
		cfg.AI.Circuit.FailureThreshold, cfg.AI.Circuit.ResetTimeoutSecs,
	))
	completer, err := llm.New(ctx, cfg.AI, breakers)
	if err != nil {
		env.Close()
		return nil, err
	}

	env.Agents, err = initAgentCache(ctx, cfg)
	if err != nil {
		env.Close()
		return nil, err
	}

	enricher := enrich.New(completer,
		enrich.WithConcurrency(cfg.Enrich.Concurrency),
		enrich.WithTemperature(cfg.AI.Temperature.Enrich),
	)
	generator := campaign.New(completer,
		campaign.WithEmailTemperature(cfg.AI.Temperature.Email),
		campaign.WithVoiceTemperature(cfg.AI.Temperature.Voice),
	)
	writeTimeout := secs(cfg.Store.WriteTimeoutSecs)
	orch := pipeline.NewOrchestrator(generator, st,
		pipeline.WithAgentCache(env.Agents),
		pipeline.WithWriteTimeout(writeTimeout),
	)

	opts := []pipeline.RunnerOption{
		pipeline.WithRunTimeout(secs(cfg.Pipeline.RunTimeoutSecs)),
		pipeline.WithLeadWriteTimeout(writeTimeout),
	}
	if cfg.Pipeline.ExportHotLeads {
		exp, err := initExporter(cfg)
		if err != nil {
			zap.L().Warn("salesforce init failed, skipping crm export", zap.Error(err))
		} else {
			opts = append(opts, pipeline.WithExporter(exp))
		}
	}

	env.Runner = pipeline.NewRunner(initSearcher(cfg), enricher, st, orch, opts...)
	return env, nil
}

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}
