package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nhle/todoboard/internal/logging"
	"github.com/nhle/todoboard/internal/model"
	"github.com/nhle/todoboard/internal/querycache"
	"github.com/nhle/todoboard/internal/remote"
	"github.com/nhle/todoboard/internal/todoapi"
)

// runtime is everything a command needs to talk to the collection.
type runtime struct {
	logger   *slog.Logger
	registry *prometheus.Registry
	store    *querycache.Store
	api      *todoapi.API

	closeLog func() error
}

// newRuntime builds the logger, remote client, query cache and API
// described by cfg. A non-nil console also receives log lines.
func newRuntime(cfg *model.AppConfig, console io.Writer) (*runtime, error) {
	logger, closeLog, err := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: console,
	})
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	reg := prometheus.NewRegistry()
	store := querycache.New(
		querycache.WithLogger(logger),
		querycache.WithMetrics(querycache.NewMetrics(reg)),
	)

	client := remote.NewClient(cfg.API.BaseURL,
		remote.WithTimeout(cfg.Timeout()),
		remote.WithLogger(logger),
	)

	api := todoapi.New(client, store,
		todoapi.WithPageSize(cfg.Display.PageSize),
		todoapi.WithLogger(logger),
	)

	logger.Debug("runtime ready", "base_url", cfg.API.BaseURL, "page_size", api.PageSize())

	return &runtime{
		logger:   logger,
		registry: reg,
		store:    store,
		api:      api,
		closeLog: closeLog,
	}, nil
}

// Close waits for background refetches and releases the log file.
func (r *runtime) Close() error {
	r.store.Wait()
	return r.closeLog()
}

// writeMetrics prints every non-zero cache counter as one line.
func (r *runtime) writeMetrics(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			v := m.GetCounter().GetValue()
			if v == 0 {
				continue
			}
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), v)
		}
	}
	return nil
}
