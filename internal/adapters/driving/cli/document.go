package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Inspect stored documents",
	Long:  `List and view documents in the canonical store.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list [user-id]",
	Short: "List documents for a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentContentCmd = &cobra.Command{
	Use:   "content [doc-id]",
	Short: "Print document markdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentContent,
}

// listDeleted includes tombstones in document list output.
var listDeleted bool

func init() {
	documentListCmd.Flags().BoolVar(&listDeleted, "deleted", false, "Include deleted documents")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentContentCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, args []string) error {
	if documentStore == nil {
		return errors.New("document store not configured")
	}

	userID := args[0]
	docs, err := documentStore.ListDocuments(context.Background(), userID)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	shown := 0
	for i := range docs {
		doc := &docs[i]
		if doc.Tombstoned() && !listDeleted {
			continue
		}
		shown++

		cmd.Printf("  %s\n", doc.DocumentID)
		cmd.Printf("    Title:   %s\n", doc.Title)
		cmd.Printf("    Source:  %s/%s (%s)\n", doc.Source.Kind, doc.Source.AccountID, doc.Source.ExternalID)
		cmd.Printf("    Version: %d\n", doc.Version)
		if doc.Tombstoned() {
			cmd.Printf("    Deleted: %s\n", doc.DeletedAtSource.Format("2006-01-02 15:04:05"))
		}
		cmd.Println()
	}

	if shown == 0 {
		cmd.Printf("No documents found for user: %s\n", userID)
		return nil
	}
	cmd.Printf("Total: %d documents\n", shown)
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentStore == nil {
		return errors.New("document store not configured")
	}

	doc, err := documentStore.GetDocument(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.DocumentID)
	cmd.Printf("  Title:    %s\n", doc.Title)
	cmd.Printf("  User:     %s\n", doc.UserID)
	cmd.Printf("  Source:   %s/%s (%s)\n", doc.Source.Kind, doc.Source.AccountID, doc.Source.ExternalID)
	cmd.Printf("  Hash:     %s\n", doc.ContentHash)
	cmd.Printf("  Version:  %d\n", doc.Version)
	cmd.Printf("  Synced:   %s\n", doc.SyncedAt.Format("2006-01-02 15:04:05"))
	if doc.UpdatedAtSource != nil {
		cmd.Printf("  Edited:   %s\n", doc.UpdatedAtSource.Format("2006-01-02 15:04:05"))
	}
	if doc.Tombstoned() {
		cmd.Printf("  Deleted:  %s\n", doc.DeletedAtSource.Format("2006-01-02 15:04:05"))
	}

	if len(doc.Metadata) > 0 {
		cmd.Println("\n  Metadata:")
		for k, v := range doc.Metadata {
			cmd.Printf("    %s: %v\n", k, v)
		}
	}
	return nil
}

func runDocumentContent(cmd *cobra.Command, args []string) error {
	if documentStore == nil {
		return errors.New("document store not configured")
	}

	doc, err := documentStore.GetDocument(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	if doc.Tombstoned() {
		return fmt.Errorf("document %s is deleted", doc.DocumentID)
	}

	cmd.Println(doc.ContentMarkdown)
	return nil
}
