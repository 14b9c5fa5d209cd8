package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vidlib/transcript-engine/internal/backoff"
	"github.com/vidlib/transcript-engine/internal/engine"
	"github.com/vidlib/transcript-engine/internal/fetcher"
	"github.com/vidlib/transcript-engine/internal/store"
	"github.com/vidlib/transcript-engine/internal/strategy"
)

// engineEnv holds the initialized engine and store needed by the fetch,
// batch, and serve commands.
type engineEnv struct {
	Engine *engine.Engine
	Store  store.Store
}

// Close releases resources held by the environment.
func (e *engineEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEngine builds the HTTP client, the strategy chain in configured order,
// the failure cache, and the store. Callers should defer env.Close().
func initEngine(ctx context.Context) (*engineEnv, error) {
	client := fetcher.NewHTTPClient(fetcher.HTTPOptions{
		Timeout:    time.Duration(cfg.Fetcher.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Fetcher.MaxRetries,
		UserAgent:  cfg.Fetcher.UserAgent,
	})

	mode := cfg.Engine.Mode
	order := cfg.Engine.StrategyOrder
	timeout := cfg.Engine.PerStrategyTimeout()
	policyCfg := backoff.DefaultPolicyConfig()

	if cfg.Engine.PolicyFile != "" {
		pf, err := engine.LoadPolicyFile(cfg.Engine.PolicyFile)
		if err != nil {
			return nil, err
		}
		mode = pf.Mode
		order = pf.StrategyOrder
		timeout = pf.PerStrategyTimeout.Std()
		policyCfg = pf.BackoffConfig()
		zap.L().Info("loaded strategy policy", zap.String("path", cfg.Engine.PolicyFile))
	}

	strategies, err := buildStrategies(client, order)
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(engine.Options{
		Strategies:         strategies,
		Cache:              backoff.NewCache(policyCfg),
		Mode:               engine.Mode(mode),
		PerStrategyTimeout: timeout,
	})
	if err != nil {
		return nil, err
	}

	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	return &engineEnv{Engine: eng, Store: st}, nil
}

// buildStrategies maps configured names to constructed strategies, keeping
// the configured order.
func buildStrategies(client fetcher.Client, order []string) ([]strategy.Strategy, error) {
	base := cfg.Fetcher.BaseURL
	var out []strategy.Strategy
	for _, name := range order {
		switch name {
		case "pagescrape":
			out = append(out, strategy.NewPageScrape(client, base))
		case "timedtext":
			out = append(out, strategy.NewTimedText(client, base))
		case "innertube":
			out = append(out, strategy.NewInnertube(client, base))
		case "autocaption":
			out = append(out, strategy.NewAutoCaption(client, base))
		case "ytdlp":
			out = append(out, strategy.NewYtdlp(cfg.Ytdlp.BinPath, cfg.Ytdlp.TempDir))
		default:
			return nil, eris.Errorf("unknown strategy %q in order", name)
		}
	}
	return out, nil
}
