package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/inkwell-sync/inkwell/internal/core/domain"
)

var connectionCmd = &cobra.Command{
	Use:   "connection",
	Short: "Manage source connections",
	Long:  `Add, list, or remove connections to note sources.`,
}

var connectionAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a source connection",
	Long: `Adds a connection to a note source.

For Notion, scope the connection to one or more databases:
  inkwell connection add --user u1 --kind notion --account ws-main --database <id>

For Obsidian, scope the connection with glob patterns over the vault:
  inkwell connection add --user u1 --kind obsidian --account vault-main --pattern '**/*.md'`,
	RunE: runConnectionAdd,
}

var connectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured connections",
	RunE:  runConnectionList,
}

var connectionRemoveCmd = &cobra.Command{
	Use:   "remove [connection-id]",
	Short: "Remove a connection",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectionRemove,
}

// Flags for connection add.
var (
	addUserID    string
	addKind      string
	addAccountID string
	addName      string
	addDatabases []string
	addPatterns  []string
)

func init() {
	connectionAddCmd.Flags().StringVar(&addUserID, "user", "", "Owning user ID (required)")
	connectionAddCmd.Flags().StringVar(&addKind, "kind", "", "Source kind: notion or obsidian (required)")
	connectionAddCmd.Flags().StringVar(&addAccountID, "account", "", "External account ID: workspace or vault name (required)")
	connectionAddCmd.Flags().StringVar(&addName, "name", "", "Human-readable connection name")
	connectionAddCmd.Flags().StringArrayVar(&addDatabases, "database", nil, "Notion database ID (repeatable)")
	connectionAddCmd.Flags().StringArrayVar(&addPatterns, "pattern", nil, "Obsidian vault glob pattern (repeatable)")

	connectionCmd.AddCommand(connectionAddCmd)
	connectionCmd.AddCommand(connectionListCmd)
	connectionCmd.AddCommand(connectionRemoveCmd)
	rootCmd.AddCommand(connectionCmd)
}

func runConnectionAdd(cmd *cobra.Command, _ []string) error {
	if connectionStore == nil {
		return errors.New("connection store not configured")
	}
	if addUserID == "" || addKind == "" || addAccountID == "" {
		return errors.New("--user, --kind and --account are required")
	}

	var filter domain.IntegrationFilter
	switch addKind {
	case domain.KindNotion:
		filter = domain.NotionFilter(addDatabases...)
	case domain.KindObsidian:
		filter = domain.ObsidianFilter(addPatterns...)
	default:
		return fmt.Errorf("%w: unknown kind %q", domain.ErrUnsupportedKind, addKind)
	}
	if err := filter.Validate(); err != nil {
		return err
	}

	name := addName
	if name == "" {
		name = addKind + "/" + addAccountID
	}

	now := time.Now().UTC()
	conn := domain.Connection{
		ID:        uuid.NewString(),
		UserID:    addUserID,
		Kind:      addKind,
		AccountID: addAccountID,
		Name:      name,
		Filter:    filter,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := connectionStore.Save(context.Background(), conn); err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}

	cmd.Printf("Added connection %s (%s).\n", conn.ID, conn.Name)
	return nil
}

func runConnectionList(cmd *cobra.Command, _ []string) error {
	if connectionStore == nil {
		return errors.New("connection store not configured")
	}

	conns, err := connectionStore.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list connections: %w", err)
	}

	if len(conns) == 0 {
		cmd.Println("No connections configured.")
		return nil
	}

	for i := range conns {
		conn := &conns[i]
		cmd.Printf("  %s\n", conn.ID)
		cmd.Printf("    Name:    %s\n", conn.Name)
		cmd.Printf("    Key:     %s\n", conn.Key())
		switch conn.Kind {
		case domain.KindNotion:
			cmd.Printf("    Scope:   %d databases\n", len(conn.Filter.DatabaseIDs))
		case domain.KindObsidian:
			cmd.Printf("    Scope:   %v\n", conn.Filter.Patterns)
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d connections\n", len(conns))
	return nil
}

func runConnectionRemove(cmd *cobra.Command, args []string) error {
	if connectionStore == nil {
		return errors.New("connection store not configured")
	}

	id := args[0]
	if err := connectionStore.Delete(context.Background(), id); err != nil {
		return fmt.Errorf("failed to remove connection: %w", err)
	}

	cmd.Printf("Removed connection %s.\n", id)
	return nil
}
