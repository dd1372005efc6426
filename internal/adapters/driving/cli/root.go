// Package cli implements the inkwell command line interface.
//
// Commands hold their collaborators in package-level variables wired
// once at startup via Initialize; tests swap in mocks the same way.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/inkwell-sync/inkwell/internal/core/ports/driven"
	"github.com/inkwell-sync/inkwell/internal/core/ports/driving"
	"github.com/inkwell-sync/inkwell/internal/logger"
)

// version is stamped by the build; "dev" for local builds.
var version = "dev"

// Wired services. Nil until Initialize runs; commands guard against
// partial wiring so tests can exercise single commands.
var (
	syncRunner      driving.SyncRunner
	connectionStore driven.ConnectionStore
	documentStore   driven.DocumentStore
	configStore     driven.ConfigStore
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "inkwell",
	Short: "Pull notes from external sources into a canonical store",
	Long: `Inkwell ingests notes from Notion databases and Obsidian vaults
into a versioned local document store. Re-running a sync is always
safe: unchanged notes are skipped by content hash and interrupted
cycles resume from the last committed cursor.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

// Dependencies carries everything the commands need.
type Dependencies struct {
	SyncRunner      driving.SyncRunner
	ConnectionStore driven.ConnectionStore
	DocumentStore   driven.DocumentStore
	ConfigStore     driven.ConfigStore
	Version         string
}

// Initialize wires the commands to their services.
func Initialize(deps Dependencies) {
	syncRunner = deps.SyncRunner
	connectionStore = deps.ConnectionStore
	documentStore = deps.DocumentStore
	configStore = deps.ConfigStore
	if deps.Version != "" {
		version = deps.Version
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
