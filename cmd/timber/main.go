package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/crimson-sun/timber/internal/compress"
	"github.com/crimson-sun/timber/internal/config"
	"github.com/crimson-sun/timber/internal/connector"
	"github.com/crimson-sun/timber/internal/dedup"
	"github.com/crimson-sun/timber/internal/logging"
	"github.com/crimson-sun/timber/internal/output"
	"github.com/crimson-sun/timber/internal/output/async"
	"github.com/crimson-sun/timber/internal/output/file"
	"github.com/crimson-sun/timber/internal/output/multi"
	"github.com/crimson-sun/timber/internal/output/stdout"
	"github.com/crimson-sun/timber/internal/output/webhook"
	"github.com/crimson-sun/timber/internal/pipeline"
	"github.com/crimson-sun/timber/internal/processor"

	// Register connector implementations.
	_ "github.com/crimson-sun/timber/internal/connector/file"
	_ "github.com/crimson-sun/timber/internal/connector/httppoll"
)

func main() {
	if err := run(); err != nil {
		slog.Error("timber failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	logging.Init(slices.Contains(cfg.Output.Targets, "stdout"), logging.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	conn, err := connector.New(cfg.Connector.Provider)
	if err != nil {
		return err
	}

	chain, err := buildChain(cfg.Pipeline)
	if err != nil {
		return err
	}

	out, err := buildOutput(cfg.Output)
	if err != nil {
		return err
	}

	var opts []pipeline.Option
	if cfg.Pipeline.DedupWindow > 0 {
		d := dedup.New(dedup.Config{
			Window: cfg.Pipeline.DedupWindow,
			Fields: cfg.Pipeline.DedupFields,
		})
		opts = append(opts,
			pipeline.WithDedup(d, cfg.Pipeline.DedupWindow),
			pipeline.WithMaxBufferSize(cfg.Pipeline.MaxBufferSize),
		)
	}
	p := pipeline.New(conn, chain, out, opts...)
	defer func() {
		if err := p.Close(); err != nil {
			slog.Error("closing outputs", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connCfg := connector.ConnectorConfig{
		Provider: cfg.Connector.Provider,
		APIKey:   cfg.Connector.APIKey,
		Endpoint: cfg.Connector.Endpoint,
		Extra:    cfg.Connector.Extra,
	}

	slog.Info("starting",
		"mode", cfg.Mode,
		"connector", cfg.Connector.Provider,
		"processors", chain.Len(),
		"outputs", cfg.Output.Targets,
		"dedup_window", cfg.Pipeline.DedupWindow,
	)

	if cfg.Mode == "query" {
		start, end, _ := cfg.Query.Range()
		params := connector.QueryParams{Start: start, End: end, Limit: cfg.Query.Limit}
		if err := p.Query(ctx, connCfg, params); err != nil {
			return err
		}
	} else if err := p.Stream(ctx, connCfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	s := p.Stats()
	slog.Info("finished", "processed", s.Processed, "dropped", s.Dropped, "failed", s.Failed)
	return nil
}

func buildChain(cfg config.PipelineConfig) (*processor.Chain, error) {
	if cfg.DefinitionPath == "" {
		return processor.NewChain(), nil
	}
	def, err := processor.LoadDefinition(cfg.DefinitionPath)
	if err != nil {
		return nil, err
	}
	return processor.Build(def.Processors)
}

func buildOutput(cfg config.OutputConfig) (output.Output, error) {
	mode := output.ParseMode(cfg.Mode)

	var outs []output.Output
	closeAll := func() {
		for _, o := range outs {
			o.Close()
		}
	}

	for _, target := range cfg.Targets {
		switch target {
		case "stdout":
			outs = append(outs, stdout.New(mode, cfg.Pretty))
		case "file":
			codec := compress.FromPath(cfg.FilePath)
			if cfg.FileCompression != "" {
				c, err := compress.ParseCodec(cfg.FileCompression)
				if err != nil {
					closeAll()
					return nil, err
				}
				codec = c
			}
			f, err := file.New(cfg.FilePath, mode,
				file.WithMaxSize(cfg.FileMaxSize),
				file.WithCompression(codec),
			)
			if err != nil {
				closeAll()
				return nil, err
			}
			outs = append(outs, f)
		case "webhook":
			opts := []webhook.Option{webhook.WithMode(mode), webhook.WithHeaders(cfg.WebhookHeaders)}
			if cfg.WebhookGzip {
				opts = append(opts, webhook.WithGzip())
			}
			// Webhook delivery runs off the pipeline goroutine.
			outs = append(outs, async.New(webhook.New(cfg.WebhookURL, opts...)))
		}
	}

	if len(outs) == 1 {
		return outs[0], nil
	}
	return multi.New(outs...), nil
}
