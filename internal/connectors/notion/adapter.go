// Package notion adapts Notion databases as a note source.
//
// Each page of the configured databases is one note: its external ID
// is the Notion page ID, its body the markdown flattening of the
// page's blocks. Incremental pulls filter on last_edited_time, so a
// cycle delivers only pages edited on or after the cursor; the
// boundary page is re-delivered and the hash-gated engine skips it.
package notion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"github.com/inkwell-sync/inkwell/internal/content"
	"github.com/inkwell-sync/inkwell/internal/core/domain"
	"github.com/inkwell-sync/inkwell/internal/core/ports/driven"
	"github.com/inkwell-sync/inkwell/internal/logger"
)

// Ensure Adapter implements the interface.
var _ driven.SourceAdapter = (*Adapter)(nil)

const pageSize = 100

// databaseQueryer is the slice of the Notion database service the
// adapter needs. Narrowed for testability.
type databaseQueryer interface {
	Query(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// blockChildrenFetcher is the slice of the Notion block service the
// adapter needs.
type blockChildrenFetcher interface {
	GetChildren(ctx context.Context, id notionapi.BlockID, pagination *notionapi.Pagination) (*notionapi.GetChildrenResponse, error)
}

// Adapter pulls pages from the Notion API.
type Adapter struct {
	db      databaseQueryer
	blocks  blockChildrenFetcher
	limiter *RateLimiter
}

// New creates an adapter authenticated with the given integration token.
func New(token string) *Adapter {
	client := notionapi.NewClient(notionapi.Token(token))
	return &Adapter{
		db:      client.Database,
		blocks:  client.Block,
		limiter: NewRateLimiter(),
	}
}

// Kind returns the source kind identifier.
func (a *Adapter) Kind() string {
	return domain.KindNotion
}

// Sync pulls every page of the scoped databases edited on or after
// the cursor. Trashed pages become delete items; pages whose blocks
// flatten to nothing are counted as skipped.
func (a *Adapter) Sync(ctx context.Context, scope domain.IntegrationFilter, cursor *domain.SyncCursor) (*domain.SyncResult, error) {
	if scope.Kind != domain.KindNotion {
		return nil, fmt.Errorf("%w: notion adapter got filter kind %q", domain.ErrInvalidFilter, scope.Kind)
	}

	since := time.Unix(0, 0).UTC()
	if cursor != nil && !cursor.Since.IsZero() {
		since = cursor.Since
	}

	result := &domain.SyncResult{NextCursor: domain.SyncCursor{Since: since}}
	for _, databaseID := range scope.DatabaseIDs {
		if err := a.syncDatabase(ctx, databaseID, since, result); err != nil {
			return nil, err
		}
	}

	logger.Debug("notion pull since %s: %d pages, %d upserts, %d deletes",
		since.Format(time.RFC3339), result.Stats.Items, result.Stats.Upserts, result.Stats.Deletes)
	return result, nil
}

// syncDatabase appends the changed pages of one database to the result.
func (a *Adapter) syncDatabase(ctx context.Context, databaseID string, since time.Time, result *domain.SyncResult) error {
	onOrAfter := notionapi.Date(since)
	var startCursor notionapi.Cursor

	for {
		if err := a.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrAdapterFailure, err)
		}

		resp, err := a.db.Query(ctx, notionapi.DatabaseID(databaseID), &notionapi.DatabaseQueryRequest{
			Filter: &notionapi.TimestampFilter{
				Timestamp:      notionapi.TimestampLastEdited,
				LastEditedTime: &notionapi.DateFilterCondition{OnOrAfter: &onOrAfter},
			},
			Sorts: []notionapi.SortObject{
				{Timestamp: notionapi.TimestampLastEdited, Direction: notionapi.SortOrderASC},
			},
			StartCursor: startCursor,
			PageSize:    pageSize,
		})
		if err != nil {
			return a.classify(fmt.Errorf("query database %s: %w", databaseID, err))
		}

		for i := range resp.Results {
			if err := a.appendPage(ctx, databaseID, &resp.Results[i], result); err != nil {
				return err
			}
		}

		if !resp.HasMore {
			return nil
		}
		startCursor = resp.NextCursor
	}
}

// appendPage converts one page to a sync item.
func (a *Adapter) appendPage(ctx context.Context, databaseID string, page *notionapi.Page, result *domain.SyncResult) error {
	result.Stats.Items++

	created := page.CreatedTime
	edited := page.LastEditedTime
	if edited.After(result.NextCursor.Since) {
		result.NextCursor.Since = edited
	}

	if page.Archived {
		result.Items = append(result.Items, domain.SyncItem{
			Op:              domain.OpDelete,
			ExternalID:      page.ID.String(),
			Title:           pageTitle(page),
			UpdatedAtSource: &edited,
			DeletedAtSource: &edited,
		})
		result.Stats.Deletes++
		return nil
	}

	markdown, err := a.fetchMarkdown(ctx, page.ID.String())
	if err != nil {
		return err
	}
	if strings.TrimSpace(markdown) == "" {
		// The protocol rejects empty upserts; report the page as skipped
		// instead of shipping an item the engine would bounce.
		result.Stats.Skipped++
		return nil
	}

	result.Items = append(result.Items, domain.SyncItem{
		Op:              domain.OpUpsert,
		ExternalID:      page.ID.String(),
		Title:           pageTitle(page),
		ContentMarkdown: markdown,
		ContentHash:     content.HashContent(markdown),
		CreatedAtSource: &created,
		UpdatedAtSource: &edited,
		Metadata: map[string]any{
			"database_id": databaseID,
			"url":         page.URL,
		},
	})
	result.Stats.Upserts++
	return nil
}

// fetchMarkdown pulls a page's top-level blocks and flattens them.
func (a *Adapter) fetchMarkdown(ctx context.Context, pageID string) (string, error) {
	var all []notionapi.Block
	var startCursor notionapi.Cursor

	for {
		if err := a.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrAdapterFailure, err)
		}

		resp, err := a.blocks.GetChildren(ctx, notionapi.BlockID(pageID), &notionapi.Pagination{
			StartCursor: startCursor,
			PageSize:    pageSize,
		})
		if err != nil {
			return "", a.classify(fmt.Errorf("get blocks of %s: %w", pageID, err))
		}

		all = append(all, resp.Results...)
		if !resp.HasMore {
			break
		}
		startCursor = notionapi.Cursor(resp.NextCursor)
	}

	return renderBlocks(all), nil
}

// classify maps a provider error to the domain taxonomy. Rate-limit
// responses arm the limiter's backoff before surfacing.
func (a *Adapter) classify(err error) error {
	if strings.Contains(err.Error(), "429") || strings.Contains(strings.ToLower(err.Error()), "rate limit") {
		a.limiter.RecordRateLimitError(0)
		return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrAdapterFailure, err)
}
