package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/abhisek/brigade/internal/assessment"
	"github.com/abhisek/brigade/internal/config"
	"github.com/abhisek/brigade/internal/events"
	"github.com/abhisek/brigade/internal/grading"
	"github.com/abhisek/brigade/internal/guard"
	"github.com/abhisek/brigade/internal/llm"
	"github.com/abhisek/brigade/internal/questionbank"
	"github.com/abhisek/brigade/internal/scoring"
	"github.com/abhisek/brigade/internal/store"
	"github.com/abhisek/brigade/internal/tutor"
)

// services are the domain services shared by the server and the terminal UI.
type services struct {
	bank       *questionbank.Bank
	assessment *assessment.Engine
	tutor      *tutor.Service
}

// newLLMProvider builds the provider from BRIGADE_* settings, or from the
// first well-known API key found when no provider is named. Every call is
// recorded in the store.
func newLLMProvider(ctx context.Context, st *store.Store, logger *slog.Logger) (llm.Provider, error) {
	cfg := llm.ConfigFromEnv()
	if os.Getenv("BRIGADE_LLM_PROVIDER") == "" {
		if found, ok := llm.DiscoverConfig(); ok {
			cfg = found
		}
	}
	p, err := llm.NewProvider(ctx, cfg, st.LLMRequests(), logger)
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	return p, nil
}

// newServices wires the bank, the assessment engine and the tutor. g and
// pub may be nil for a single local process.
func newServices(cfg config.Config, st *store.Store, p llm.Provider, g guard.Guard, pub events.Publisher, logger *slog.Logger) *services {
	if g == nil {
		g = guard.NewMemory()
	}
	if pub == nil {
		pub = events.Nop{}
	}

	bankCfg := questionbank.DefaultConfig()
	if cfg.GenerationWait > 0 {
		bankCfg.GenerationWait = cfg.GenerationWait
	}
	bank := questionbank.NewBank(st, questionbank.NewGenerator(p, bankCfg), bankCfg, logger)

	engCfg := assessment.DefaultConfig()
	if cfg.GradingTimeout > 0 {
		engCfg.GradingTimeout = cfg.GradingTimeout
	}
	eng := assessment.NewEngine(assessment.Deps{
		Store:     st,
		Bank:      bank,
		Grader:    grading.NewEngine(grading.NewLLMJudge(p, grading.DefaultJudgeConfig())),
		Scorer:    scoring.NewScorer(scoring.NewLLMNarrator(p, scoring.DefaultNarratorConfig()), logger),
		Guard:     g,
		Publisher: pub,
		Logger:    logger,
	}, engCfg)

	tut := tutor.NewService(st, bank, tutor.NewLLMCoach(p, tutor.DefaultCoachConfig()),
		tutor.WithThreshold(cfg.TutorThreshold),
		tutor.WithGuard(g),
		tutor.WithPublisher(pub),
		tutor.WithLogger(logger),
	)

	return &services{bank: bank, assessment: eng, tutor: tut}
}

// readOnlyBank serves unit and question reads without an LLM.
func readOnlyBank(st *store.Store, logger *slog.Logger) *questionbank.Bank {
	return questionbank.NewBank(st, nil, questionbank.DefaultConfig(), logger)
}
