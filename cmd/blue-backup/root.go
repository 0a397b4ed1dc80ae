package main

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Command line flags.
	firstTime  bool
	dryRun     bool
	verbose    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "blue-backup <config.toml>",
	Short: "An rsync backup orchestrator with dated snapshot folders",
	Long: `blue-backup reads a TOML configuration and syncs the listed folders
into a target location. The target path selects the mode:

  {TODAY}  in the target  - snapshot mode, one dated folder per day
  {LATEST} in the target  - offsite mode, copy the newest snapshot elsewhere
  no token                - collect mode, sync into one flat tree

Use as a one-shot command with an external scheduler (cron, systemd timer, etc.)`,
	Args: cobra.ExactArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	RunE:          runBackup,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().BoolVar(&firstTime, "first-time", false, "allow creating the very first snapshot folder")
	rootCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "show what would be done without changing anything")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output logs in JSON format")

	rootCmd.AddCommand(validateCmd)
}

func setupLogging() {
	if jsonOutput {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		output.FormatLevel = func(i interface{}) string {
			if s, ok := i.(string); ok {
				return strings.ToUpper(s)
			}
			return ""
		}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
