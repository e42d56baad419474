package main

import (
	"os"

	"github.com/zax-lab/nascar-dfs-engine/pkg/config"
	"github.com/zax-lab/nascar-dfs-engine/pkg/core"
	"github.com/zax-lab/nascar-dfs-engine/pkg/kernel"
	"github.com/zax-lab/nascar-dfs-engine/pkg/reporting"
)

// newRuntime loads config and wires the Core API service this binary's
// subcommands call into. dfsctl is a one-shot CLI, not a long-running
// server: submit_run executes and blocks until the run reaches a terminal
// state within the same process. status/result read what a run persisted
// under reporting.Storage; cancel calls CancelRun on this invocation's fresh
// in-memory service, which holds no run started by another invocation.
func newRuntime() (*core.Service, *reporting.Storage, *reporting.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, err
	}

	logLevel := reporting.LogLevelInfo
	if verbose {
		logLevel = reporting.LogLevelDebug
	}
	logger := reporting.NewLogger(reporting.LoggerConfig{
		Level:  logLevel,
		Format: reporting.LogFormat(cfg.Engine.LogFormat),
		Output: os.Stdout,
	})

	storage, err := reporting.NewStorage(cfg.Reporting.OutputDir, cfg.Reporting.KeepLastN, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	instr := kernel.NewInstrumentation(nil)
	metrics := core.NewRunMetrics(nil)
	service := core.NewService(cfg, storage, logger, metrics, instr)

	return service, storage, logger, nil
}
