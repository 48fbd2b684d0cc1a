package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cchalm/learnlog/internal/config"
	"github.com/cchalm/learnlog/internal/logger"
)

var (
	v          = config.New()
	cfg        config.Config
	configPath string
	log        = logger.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "learnlog",
	Short: "Turn a chat export into a reviewable Notion study log",
	Long: `learnlog reads an exported conversation archive, pairs each question with the answer
that followed it, generates a title, topics and a difficulty rating for every pair and stores
the result as pages of a Notion database. Answers longer than a Notion text field continue in
the page body.`,
	PersistentPreRunE: loadRootConfig,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		log.Sync()
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func loadRootConfig(_ *cobra.Command, _ []string) error {
	// Load .env file
	dotenvErr := godotenv.Load()
	if dotenvErr != nil && !errors.Is(dotenvErr, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %w", dotenvErr)
	}

	var err error
	cfg, err = config.Load(v, configPath)
	if err != nil {
		return err
	}

	log, err = logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	if dotenvErr != nil {
		log.Debug("no .env file found, using environment variables")
	}
	return nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to an optional YAML config file")
	flags.String("input", "", "Path to the conversation archive (default inbox/conversations.json)")
	flags.Bool("follow-thread", false, "Follow each conversation's active thread instead of serialization order")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: console or json")

	bindFlag(config.KeyInput, flags.Lookup("input"))
	bindFlag(config.KeyFollowThread, flags.Lookup("follow-thread"))
	bindFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	bindFlag(config.KeyLogFormat, flags.Lookup("log-format"))
}
