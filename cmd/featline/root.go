package main

import (
	"bytes"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/featline/pkg/config"
	"github.com/ajitpratap0/featline/pkg/errors"
)

// envPrefix prefixes every environment override, e.g. FEATLINE_PARSING_STRICT.
const envPrefix = "FEATLINE"

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "featline",
		Short: "Parse sparse feature lines into hashed examples",
		Long: `featline reads lines of the form

  [label] ['tag] |namespace[:weight] feature[:value] ... |namespace ...

hashes every feature into a sparse index space and writes the resulting
examples as text or JSON.

Settings come from flags, then FEATLINE_* environment variables
(FEATLINE_PARSING_STRICT=true), then the --config file, then defaults.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "YAML config file")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-encoding", "console", "log encoding (console, json)")
	bind(v, root.PersistentFlags(), map[string]string{
		"observability.log_level":    "log-level",
		"observability.log_encoding": "log-encoding",
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "featline v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})
	root.AddCommand(newParseCmd(v))

	return root
}

// bind maps config keys to flags so viper resolves flag > env > file > default.
func bind(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
}

// loadConfig resolves the effective configuration. The file goes through
// config.LoadFile first so ${VAR} references are expanded.
func loadConfig(v *viper.Viper, path string) (*config.Config, error) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := config.NewConfig("featline")
	if path != "" {
		fileCfg, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		data, err := yaml.Marshal(fileCfg)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to re-encode config")
		}
		v.SetConfigType("yaml")
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config").
				WithDetail("path", path)
		}
		cfg = fileCfg
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode settings")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
