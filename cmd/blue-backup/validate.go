package main

import (
	"fmt"

	"github.com/fgeck/blue-backup/internal/config"
	"github.com/fgeck/blue-backup/internal/report"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <config.toml>",
	Short: "Validate a configuration file",
	Long:  `Validate the configuration file without executing any backup operations.`,
	Args:  cobra.ExactArgs(1),
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	reporter := report.New()

	parser := config.NewParser()
	cfg, err := parser.LoadFile(args[0])
	if err != nil {
		reporter.Fatal(err.Error())
		return err
	}
	for _, warning := range parser.Warnings() {
		reporter.Warn("%s", warning)
	}
	if err := config.Validate(cfg, firstTime); err != nil {
		reporter.Fatal(err.Error())
		return err
	}

	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  Mode: %s\n", cfg.Mode)
	fmt.Printf("  Target: %s\n", cfg.Target)
	if len(cfg.Exclude) > 0 {
		fmt.Printf("  Exclude: %v\n", cfg.Exclude)
	}
	if len(cfg.RsyncOptions) > 0 {
		fmt.Printf("  Rsync options: %v\n", cfg.RsyncOptions)
	}
	fmt.Println()
	fmt.Printf("Backup folders (%d):\n", len(cfg.Folders))
	for _, folder := range cfg.Folders {
		fmt.Printf("  %s -> %s\n", folder.Source, folder.Target)
	}

	if cfg.WOL != nil {
		fmt.Println()
		fmt.Println("Wake-on-LAN:")
		fmt.Printf("  MAC Address: %s\n", cfg.WOL.MACAddress)
		fmt.Printf("  Broadcast: %s\n", cfg.WOL.Broadcast)
		fmt.Printf("  Boot wait: %s\n", cfg.WOL.Wait)
	}

	return nil
}
