// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the research-assistant CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-assistant/internal/logger"
	"github.com/pdiddy/research-assistant/internal/secrets"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds API keys loaded from .secrets/ at startup.
	loadedSecrets secrets.Set
	// cfg is the merged configuration for the running command.
	cfg types.Config
	// log is the logger for the running command.
	log logger.Logger = logger.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "research-assistant",
	Short: "Search, process and query academic papers",
	Long: `research-assistant finds papers on a topic through academic APIs, downloads
their PDFs, extracts text, sections and figure/table captions, and stores the
enriched records by topic. Stored papers can be browsed, exported, questioned
and used to generate research ideas, review papers and improvement plans.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s

		if err := loadConfig(); err != nil {
			return err
		}
		log = logger.New(logger.Config{Level: logger.Level(cfg.Log.Level), JSON: cfg.Log.JSON})

		if len(s) > 0 {
			log.Debug("loaded secrets", "keys", s.Keys())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./research-assistant.yaml or ~/.config/research-assistant/research-assistant.yaml)")
	pf.String("data-dir", "data", "directory holding the paper database")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.Bool("log-json", false, "write JSON log lines")
	pf.String("provider", "ollama", "LLM provider: ollama, openai or anthropic")
	pf.String("model", "", "LLM model identifier")

	for key, flag := range map[string]string{
		"store.data_dir": "data-dir",
		"log.level":      "log-level",
		"log.json":       "log-json",
		"llm.provider":   "provider",
		"llm.model":      "model",
	} {
		if err := viper.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	setDefaults()
}

func setDefaults() {
	viper.SetDefault("search.max_results", 10)
	viper.SetDefault("search.years_back", 5)
	viper.SetDefault("search.timeout", "30s")
	viper.SetDefault("search.user_agent", "research-assistant/0.1")
	viper.SetDefault("fetch.timeout", "30s")
	viper.SetDefault("fetch.user_agent", "research-assistant/0.1")
	viper.SetDefault("fetch.max_bytes", 64<<20)
	viper.SetDefault("fetch.min_delay", "1s")
	viper.SetDefault("fetch.max_delay", "2s")
	viper.SetDefault("fetch.host_interval", "1s")
	viper.SetDefault("extract.page_policy", string(types.PageStrict))
	viper.SetDefault("llm.timeout", "120s")
	viper.SetDefault("llm.max_retries", 2)
	viper.SetDefault("llm.cache_ttl", "10m")
	viper.SetDefault("server.addr", ":8000")
	viper.SetDefault("server.cors", true)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("research-assistant")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "research-assistant"))
		}
	}

	viper.SetEnvPrefix("RESEARCH_ASSISTANT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes viper state into cfg and fills API keys from secrets.
func loadConfig() error {
	var c types.Config
	if err := viper.Unmarshal(&c); err != nil {
		return fmt.Errorf("decoding configuration: %w", err)
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "openai":
		c.LLM.APIKey = loadedSecrets.Lookup(secrets.OpenAIKey, c.LLM.APIKey, "OPENAI_API_KEY")
	case "anthropic", "claude":
		c.LLM.APIKey = loadedSecrets.Lookup(secrets.AnthropicKey, c.LLM.APIKey, "ANTHROPIC_API_KEY")
	}
	policy, err := types.ParsePagePolicy(string(c.Extract.PagePolicy))
	if err != nil {
		return fmt.Errorf("extract.page_policy: %w", err)
	}
	c.Extract.PagePolicy = policy
	if c.LLM.Model == "" {
		c.LLM.Model = os.Getenv("LLM_MODEL")
	}
	cfg = c
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
