package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/featline/internal/pipeline"
	"github.com/ajitpratap0/featline/pkg/compression"
	"github.com/ajitpratap0/featline/pkg/config"
	"github.com/ajitpratap0/featline/pkg/dictionary"
	"github.com/ajitpratap0/featline/pkg/errors"
	"github.com/ajitpratap0/featline/pkg/label"
	"github.com/ajitpratap0/featline/pkg/logger"
	"github.com/ajitpratap0/featline/pkg/mmap"
	"github.com/ajitpratap0/featline/pkg/observability"
	"github.com/ajitpratap0/featline/pkg/parser"
	"github.com/ajitpratap0/featline/pkg/source"
)

type parseOptions struct {
	output       string
	outputFile   string
	dictionaries []string
	mmap         bool
	cpuProfile   string
	memProfile   string
}

func newParseCmd(v *viper.Viper) *cobra.Command {
	var opts parseOptions
	defaults := config.NewConfig("featline")

	cmd := &cobra.Command{
		Use:   "parse [inputs...]",
		Short: "Parse input files into examples",
		Long: `Parse every input in order and write the examples. With no inputs, or
with "-", stdin is read. Inputs ending in .gz, .zst, .lz4, .sz, .s2 or .deflate
are decompressed; s3://bucket/key and gs://bucket/object are fetched.

Example:
  featline parse --bits 20 --affix +2a,-3b --output json train.txt.gz
  zcat data.gz | featline parse --strict --fail-fast --output none`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := loadConfig(v, path)
			if err != nil {
				return err
			}
			for _, spec := range opts.dictionaries {
				dc, err := parseDictionaryFlag(spec)
				if err != nil {
					return err
				}
				cfg.Features.Dictionaries = append(cfg.Features.Dictionaries, dc)
			}
			if len(args) == 0 {
				args = []string{source.Stdin}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runParse(ctx, cmd, cfg, opts, args)
		},
	}

	f := cmd.Flags()
	f.String("hash", defaults.Hashing.Function, "hash function (strings, all, xxhash)")
	f.Uint32("hash-seed", defaults.Hashing.Seed, "seed mixed into every namespace hash")
	f.Int("bits", defaults.Hashing.Bits, "number of index bits; 0 disables masking")
	f.String("affix", "", "prefix/suffix features, e.g. +2a,-3b")
	f.StringSlice("spelling", nil, "namespaces that get spelling features (_ is the default namespace)")
	f.StringSlice("redefine", nil, "namespace redefinition rules, e.g. ab:=x or :=y")
	f.Bool("strict", defaults.Parsing.Strict, "fail lines on malformed input instead of warning")
	f.Bool("audit", defaults.Parsing.Audit, "record human-readable feature names")
	f.String("label", defaults.Parsing.Label, "label type (simple, none)")
	f.Int("batch-size", defaults.Performance.BatchSize, "lines parsed together")
	f.Int("workers", defaults.Performance.Workers, "parse goroutines per batch")
	f.Int("max-line-bytes", defaults.Performance.MaxLineBytes, "skip lines longer than this")
	f.Bool("fail-fast", defaults.Performance.FailFast, "stop at the first line that fails to parse")
	f.String("aws-region", "", "region for s3:// inputs")
	f.String("s3-endpoint", "", "custom S3 endpoint")
	f.Bool("gcs-anonymous", false, "read gs:// inputs without credentials")
	f.Bool("metrics", defaults.Observability.EnableMetrics, "serve prometheus metrics")
	f.String("metrics-addr", defaults.Observability.MetricsAddr, "metrics listen address")
	f.Bool("trace", defaults.Observability.EnableTracing, "export batch spans to stderr")
	f.Float64("trace-sample-rate", defaults.Observability.TracingSampleRate, "fraction of batches traced")
	bind(v, f, map[string]string{
		"hashing.function":                  "hash",
		"hashing.seed":                      "hash-seed",
		"hashing.bits":                      "bits",
		"features.affix":                    "affix",
		"features.spelling":                 "spelling",
		"features.redefine":                 "redefine",
		"parsing.strict":                    "strict",
		"parsing.audit":                     "audit",
		"parsing.label":                     "label",
		"performance.batch_size":            "batch-size",
		"performance.workers":               "workers",
		"performance.max_line_bytes":        "max-line-bytes",
		"performance.fail_fast":             "fail-fast",
		"sources.aws_region":                "aws-region",
		"sources.s3_endpoint":               "s3-endpoint",
		"sources.gcs_anonymous":             "gcs-anonymous",
		"observability.enable_metrics":      "metrics",
		"observability.metrics_addr":        "metrics-addr",
		"observability.enable_tracing":      "trace",
		"observability.tracing_sample_rate": "trace-sample-rate",
	})

	f.StringVar(&opts.output, "output", "text", "output format (text, json, none)")
	f.StringVarP(&opts.outputFile, "output-file", "o", "", "write examples here instead of stdout; compressed by extension")
	f.StringArrayVar(&opts.dictionaries, "dictionary", nil, "attach a dictionary, as namespaces:path (e.g. ab:dict.txt.gz)")
	f.BoolVar(&opts.mmap, "mmap", false, "memory-map uncompressed local inputs")
	f.StringVar(&opts.cpuProfile, "cpuprofile", "", "write a CPU profile to this file")
	f.StringVar(&opts.memProfile, "memprofile", "", "write a heap profile to this file on exit")

	return cmd
}

func runParse(ctx context.Context, cmd *cobra.Command, cfg *config.Config, opts parseOptions, inputs []string) (err error) {
	log, err := logger.New(logger.Config{
		Level:    cfg.Observability.LogLevel,
		Encoding: cfg.Observability.LogEncoding,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to build logger")
	}
	logger.Set(log)
	defer func() { _ = logger.Sync() }()

	stopProfiles, err := startProfiles(opts.cpuProfile, opts.memProfile)
	if err != nil {
		return err
	}
	defer stopProfiles()

	if cfg.Observability.EnableMetrics {
		srv := serveMetrics(cfg.Observability.MetricsAddr)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}
	if cfg.Observability.EnableTracing {
		shutdown, terr := observability.InitTracing(observability.TracingConfig{
			ServiceName:    "featline",
			ServiceVersion: version,
			SamplingRate:   cfg.Observability.TracingSampleRate,
			Writer:         cmd.ErrOrStderr(),
		})
		if terr != nil {
			return terr
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	pctx, err := parser.NewContextFromConfig(cfg)
	if err != nil {
		return err
	}
	opener := source.NewOpener(cfg.Sources)
	opener.Stdin = cmd.InOrStdin()
	defer opener.Close()

	if err := dictionary.LoadAll(ctx, cfg.Features.Dictionaries, opener, pctx); err != nil {
		return err
	}

	lp, err := label.Lookup(cfg.Parsing.Label)
	if err != nil {
		return err
	}
	p := parser.New(pctx, parser.WithLabelParser(lp), parser.WithWarningSink(parser.LogSink(log)))

	out, err := openOutput(opts.output, opts.outputFile, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, errors.ErrorTypeFile, "failed to finish output")
		}
	}()

	var total pipeline.Stats
	for _, name := range inputs {
		stats, rerr := parseInput(ctx, cfg, p, opener, name, total.NextOrdinal, opts.mmap, out)
		total.Add(stats)
		if rerr != nil {
			return rerr
		}
	}

	log.Info("parsed all inputs",
		zap.Int("inputs", len(inputs)),
		zap.Int64("examples", total.Examples),
		zap.Int64("failed", total.Failed),
		zap.Int64("skipped", total.Skipped),
		zap.Int64("features", total.Features),
		zap.Duration("duration", total.Duration))

	if total.Failed > 0 && cfg.Parsing.Strict {
		return errors.New(errors.ErrorTypeData, "some lines failed to parse").
			WithDetail("failed", total.Failed)
	}
	return nil
}

func parseInput(ctx context.Context, cfg *config.Config, p *parser.Parser, opener *source.Opener, name string, first uint64, useMmap bool, out exampleWriter) (pipeline.Stats, error) {
	pcfg := pipeline.ConfigFrom(name, cfg.Performance)
	pcfg.FirstOrdinal = first

	var r parser.LineReader
	if useMmap && mappable(name) {
		mf, err := mmap.Open(name)
		if err != nil {
			return pipeline.Stats{NextOrdinal: first}, err
		}
		defer mf.Close()
		r = mf.Lines()
	} else {
		rc, err := opener.Open(ctx, name)
		if err != nil {
			return pipeline.Stats{NextOrdinal: first}, err
		}
		defer rc.Close()
		r = source.NewReader(rc, cfg.Sources.ReadBufferBytes, pcfg.MaxLineBytes)
	}
	return pipeline.New(p, pcfg).Run(ctx, r, out.Write)
}

// mappable reports whether name is an uncompressed local file.
func mappable(name string) bool {
	if name == source.Stdin || name == "" || strings.Contains(name, "://") {
		return false
	}
	return compression.Detect(name) == compression.None
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}
