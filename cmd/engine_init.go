package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leaseline/leaseline/internal/identity"
	"github.com/leaseline/leaseline/internal/resolver"
	"github.com/leaseline/leaseline/internal/store"
	"github.com/leaseline/leaseline/pkg/vapi"
)

// engine bundles the wired resolution components for a command invocation.
type engine struct {
	Store    store.Store
	Accounts *identity.Resolver
	Matcher  *identity.Matcher
	Pipeline *resolver.Pipeline
}

// initEngine opens the store and wires the resolver stack from config.
func initEngine(ctx context.Context) (*engine, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	weights := identity.DefaultWeights()
	if cfg.Matcher.WeightsFile != "" {
		weights, err = identity.LoadWeights(cfg.Matcher.WeightsFile)
		if err != nil {
			st.Close()
			return nil, err
		}
	}

	// A missing API key disables the id-based strategies rather than
	// failing every request.
	var client vapi.Client
	if cfg.Vapi.APIKey != "" {
		opts := []vapi.Option{vapi.WithBaseURL(cfg.Vapi.BaseURL)}
		if cfg.Vapi.TimeoutSecs > 0 {
			opts = append(opts, vapi.WithTimeout(time.Duration(cfg.Vapi.TimeoutSecs)*time.Second))
		}
		if cfg.Vapi.RateLimitRPS > 0 {
			opts = append(opts, vapi.WithRateLimit(cfg.Vapi.RateLimitRPS))
		}
		client, err = vapi.NewClient(cfg.Vapi.APIKey, opts...)
		if err != nil {
			st.Close()
			return nil, err
		}
	} else {
		zap.L().Warn("no vapi API key configured, id-based resolution strategies disabled")
	}

	cache, err := resolver.NewLRUCache(cfg.Resolver.CacheSize)
	if err != nil {
		st.Close()
		return nil, err
	}

	accounts := identity.NewResolver(st)
	return &engine{
		Store:    st,
		Accounts: accounts,
		Matcher:  identity.NewMatcher(st, weights),
		Pipeline: resolver.NewPipeline(accounts, client, cache),
	}, nil
}

// Close releases the engine's resources.
func (e *engine) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("store close failed", zap.Error(err))
	}
}

// openStore creates the configured store driver.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres", "":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
