package main

import (
	"fmt"
	"os"

	"github.com/inkwell-sync/inkwell/internal/adapters/driven/config/file"
	"github.com/inkwell-sync/inkwell/internal/adapters/driven/storage/sqlite"
	"github.com/inkwell-sync/inkwell/internal/adapters/driving/cli"
	"github.com/inkwell-sync/inkwell/internal/connectors/notion"
	"github.com/inkwell-sync/inkwell/internal/connectors/obsidian"
	"github.com/inkwell-sync/inkwell/internal/core/ports/driven"
	"github.com/inkwell-sync/inkwell/internal/core/services"
	"github.com/inkwell-sync/inkwell/internal/pool"
)

// version is overridden at build time with -ldflags.
var version = "dev"

const defaultPoolLimit = 4

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "inkwell: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}

	store, err := sqlite.NewStore(configStore.GetString(file.KeyDataDir))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	// Only configured sources are registered; syncing a connection of
	// an unregistered kind fails with a clear error instead of a
	// doomed API call.
	var adapters []driven.SourceAdapter
	if token := configStore.GetString(file.KeyNotionToken); token != "" {
		adapters = append(adapters, notion.New(token))
	}
	if vault := configStore.GetString(file.KeyObsidianVault); vault != "" {
		adapters = append(adapters, obsidian.New(vault))
	}
	registry := services.NewAdapterRegistry(adapters...)

	limit := configStore.GetInt(file.KeyPoolLimit)
	if limit < 1 {
		limit = defaultPoolLimit
	}

	reconciler := services.NewReconciler(
		store.ConnectionStore(),
		store.DocumentStore(),
		registry,
		pool.New(limit),
	)

	cli.Initialize(cli.Dependencies{
		SyncRunner:      reconciler,
		ConnectionStore: store.ConnectionStore(),
		DocumentStore:   store.DocumentStore(),
		ConfigStore:     configStore,
		Version:         version,
	})

	return cli.Execute()
}
