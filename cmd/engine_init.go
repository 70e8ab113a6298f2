package main

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mydailyprop/internal/engine"
	"github.com/sells-group/mydailyprop/internal/fetcher"
	"github.com/sells-group/mydailyprop/internal/llm"
	"github.com/sells-group/mydailyprop/internal/pipeline"
	"github.com/sells-group/mydailyprop/internal/prompt"
)

// initEngine validates the config for mode and builds the engine from the
// configured fetchers, model backend and prompts. metrics may be nil.
func initEngine(mode string, metrics *engine.Metrics) (*engine.Engine, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	prompts, err := prompt.Load(cfg.Prompts.Path)
	if err != nil {
		return nil, eris.Wrap(err, "load prompts")
	}

	f, err := fetcher.FromConfig(cfg)
	if err != nil {
		return nil, eris.Wrap(err, "init fetcher")
	}

	gen, err := llm.FromConfig(cfg, prompts)
	if err != nil {
		return nil, eris.Wrap(err, "init generator")
	}

	return buildEngine(f, gen, cfg.Engine.StageTimeout(), metrics)
}

func buildEngine(f fetcher.Fetcher, gen llm.Generator, stageTimeout time.Duration, metrics *engine.Metrics) (*engine.Engine, error) {
	g, err := pipeline.New(f, gen)
	if err != nil {
		return nil, eris.Wrap(err, "build pipeline")
	}
	return engine.New(g,
		engine.WithStageTimeout(stageTimeout),
		engine.WithMetrics(metrics),
	)
}
