// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the cabinet CLI. Each drawer is a
// subcommand: generate, knowledge, ner, metamap, normalize, stimulant, and
// serve.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/cabinet/internal/config"
	"github.com/pdiddy/cabinet/internal/logging"
	"github.com/pdiddy/cabinet/internal/secrets"
	"github.com/pdiddy/cabinet/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds API keys loaded from .secrets/ at startup.
	loadedSecrets map[string]string

	// cfg is the resolved configuration, filled in PersistentPreRunE.
	cfg types.Config

	log *logrus.Logger
)

// rootCmd is the base command for the cabinet CLI.
var rootCmd = &cobra.Command{
	Use:   "cabinet",
	Short: "Biomedical NLP drawers: terminology, NER, MetaMap, and text search",
	Long: `cabinet gives data scientists programmatic access to biomedical NLP tools.

Each drawer is a subcommand: generate builds the SNOMED CT package data from
licensed UMLS and RF2 files, knowledge converts and traverses it, ner calls the
NER API, metamap runs a local MetaMap install, normalize and stimulant clean
and search tabular data, and serve runs the REST app.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		format, _ := cmd.Flags().GetString("log-format")
		logger, err := logging.Configure(os.Stderr, level, format, version)
		if err != nil {
			return err
		}
		log = logger

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			log.WithField("keys", keys).Debug("loaded secrets")
		}

		return loadConfig()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./cabinet.yaml or ~/.config/cabinet/cabinet.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before configuration")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: panic, fatal, error, warn, info, debug, trace")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().String("data-dir", "", "package data directory (default: data)")

	_ = viper.BindPFlag("knowledge.data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}

func initConfig() {
	envFile, _ := rootCmd.PersistentFlags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		logrus.WithError(err).Warn("ignoring env file")
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("cabinet")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "cabinet"))
		}
	}

	viper.SetEnvPrefix("CABINET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("mode", "MODE", "CABINET_MODE")

	if err := viper.ReadInConfig(); err == nil {
		logrus.WithField("file", viper.ConfigFileUsed()).Debug("using config file")
	}
}

// loadConfig reads every configuration key from viper into cfg, fills
// secrets, and applies defaults.
func loadConfig() error {
	cfg = types.Config{
		Mode: types.Mode(viper.GetString("mode")),
		NER: types.NERConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("ner.timeout"),
				UserAgent: viper.GetString("ner.user_agent"),
			},
			APIURL:      viper.GetString("ner.api_url"),
			WSURL:       viper.GetString("ner.ws_url"),
			Token:       secrets.Resolve(loadedSecrets, secrets.NERToken, viper.GetString("ner.token")),
			Concurrency: viper.GetInt("ner.concurrency"),
			MaxRetries:  viper.GetInt("ner.max_retries"),
		},
		Knowledge: types.KnowledgeConfig{
			DataDir:    viper.GetString("knowledge.data_dir"),
			IndexDir:   viper.GetString("knowledge.index_dir"),
			MaxResults: viper.GetInt("knowledge.max_results"),
		},
		MetaMap: types.MetaMapConfig{
			Location:       viper.GetString("metamap.location"),
			Binary:         viper.GetString("metamap.binary"),
			StartupTimeout: viper.GetDuration("metamap.startup_timeout"),
			Workers:        viper.GetInt("metamap.workers"),
			APIKey:         secrets.Resolve(loadedSecrets, secrets.MetaMapAPIKey, viper.GetString("metamap.api_key")),
		},
		Server: types.ServerConfig{
			Address:        viper.GetString("server.address"),
			Port:           viper.GetString("server.port"),
			ReleasesFile:   viper.GetString("server.releases_file"),
			ReloadInterval: viper.GetDuration("server.reload_interval"),
			RateLimit:      viper.GetFloat64("server.rate_limit"),
			RateBurst:      viper.GetInt64("server.rate_burst"),
		},
		Generate: types.GenerateConfig{
			OutputDir: viper.GetString("generate.output_dir"),
		},
	}
	return config.ApplyDefaults(&cfg)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
