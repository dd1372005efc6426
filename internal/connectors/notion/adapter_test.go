package notion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-sync/inkwell/internal/content"
	"github.com/inkwell-sync/inkwell/internal/core/domain"
)

// fakeDatabase implements databaseQueryer with canned pages.
type fakeDatabase struct {
	pages map[string][]notionapi.Page
	err   error
}

func (f *fakeDatabase) Query(_ context.Context, id notionapi.DatabaseID, _ *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &notionapi.DatabaseQueryResponse{
		Results: f.pages[string(id)],
		HasMore: false,
	}, nil
}

// fakeBlocks implements blockChildrenFetcher with canned blocks per page.
type fakeBlocks struct {
	blocks map[string][]notionapi.Block
}

func (f *fakeBlocks) GetChildren(_ context.Context, id notionapi.BlockID, _ *notionapi.Pagination) (*notionapi.GetChildrenResponse, error) {
	return &notionapi.GetChildrenResponse{
		Results: f.blocks[string(id)],
		HasMore: false,
	}, nil
}

func newTestAdapter(db *fakeDatabase, blocks *fakeBlocks) *Adapter {
	return &Adapter{
		db:      db,
		blocks:  blocks,
		limiter: NewRateLimiterWithConfig(RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 1000}),
	}
}

func titledPage(id string, title string, edited time.Time, archived bool) notionapi.Page {
	return notionapi.Page{
		ID:             notionapi.ObjectID(id),
		CreatedTime:    edited.Add(-time.Hour),
		LastEditedTime: edited,
		Archived:       archived,
		Properties: notionapi.Properties{
			"Name": &notionapi.TitleProperty{
				Title: []notionapi.RichText{{PlainText: title}},
			},
		},
		URL: "https://notion.so/" + id,
	}
}

func paragraph(text string) *notionapi.ParagraphBlock {
	return &notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeParagraph,
		},
		Paragraph: notionapi.Paragraph{
			RichText: []notionapi.RichText{{PlainText: text}},
		},
	}
}

func TestSyncDeliversChangedPages(t *testing.T) {
	edited := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	db := &fakeDatabase{pages: map[string][]notionapi.Page{
		"db-1": {titledPage("p1", "Meeting notes", edited, false)},
	}}
	blocks := &fakeBlocks{blocks: map[string][]notionapi.Block{
		"p1": {paragraph("Agenda"), paragraph("Decisions")},
	}}
	adapter := newTestAdapter(db, blocks)

	cursor := domain.EpochCursor()
	result, err := adapter.Sync(context.Background(), domain.NotionFilter("db-1"), &cursor)
	require.NoError(t, err)
	require.NoError(t, result.ValidateEnvelope())

	require.Len(t, result.Items, 1)
	item := result.Items[0]
	assert.Equal(t, domain.OpUpsert, item.Op)
	assert.Equal(t, "p1", item.ExternalID)
	assert.Equal(t, "Meeting notes", item.Title)
	assert.Equal(t, "Agenda\n\nDecisions\n", item.ContentMarkdown)
	assert.Equal(t, content.HashContent(item.ContentMarkdown), item.ContentHash)
	require.NotNil(t, item.UpdatedAtSource)
	assert.True(t, item.UpdatedAtSource.Equal(edited))
	assert.Equal(t, "db-1", item.Metadata["database_id"])

	assert.True(t, result.NextCursor.Since.Equal(edited), "cursor advances to the newest edit seen")
}

func TestSyncArchivedPageBecomesDelete(t *testing.T) {
	edited := time.Date(2026, 6, 2, 8, 0, 0, 0, time.UTC)
	db := &fakeDatabase{pages: map[string][]notionapi.Page{
		"db-1": {titledPage("p1", "Gone", edited, true)},
	}}
	adapter := newTestAdapter(db, &fakeBlocks{})

	cursor := domain.EpochCursor()
	result, err := adapter.Sync(context.Background(), domain.NotionFilter("db-1"), &cursor)
	require.NoError(t, err)
	require.NoError(t, result.ValidateEnvelope())

	require.Len(t, result.Items, 1)
	item := result.Items[0]
	assert.Equal(t, domain.OpDelete, item.Op)
	require.NotNil(t, item.DeletedAtSource)
	assert.True(t, item.DeletedAtSource.Equal(edited))
	assert.Equal(t, 1, result.Stats.Deletes)
}

func TestSyncEmptyPageCountsAsSkipped(t *testing.T) {
	edited := time.Date(2026, 6, 3, 8, 0, 0, 0, time.UTC)
	db := &fakeDatabase{pages: map[string][]notionapi.Page{
		"db-1": {titledPage("p1", "Blank", edited, false)},
	}}
	adapter := newTestAdapter(db, &fakeBlocks{}) // no blocks for p1

	cursor := domain.EpochCursor()
	result, err := adapter.Sync(context.Background(), domain.NotionFilter("db-1"), &cursor)
	require.NoError(t, err)
	require.NoError(t, result.ValidateEnvelope())

	assert.Empty(t, result.Items)
	assert.Equal(t, 1, result.Stats.Skipped)
}

func TestSyncSpansMultipleDatabases(t *testing.T) {
	edited := time.Date(2026, 6, 4, 8, 0, 0, 0, time.UTC)
	db := &fakeDatabase{pages: map[string][]notionapi.Page{
		"db-1": {titledPage("p1", "One", edited, false)},
		"db-2": {titledPage("p2", "Two", edited.Add(time.Hour), false)},
	}}
	blocks := &fakeBlocks{blocks: map[string][]notionapi.Block{
		"p1": {paragraph("a")},
		"p2": {paragraph("b")},
	}}
	adapter := newTestAdapter(db, blocks)

	cursor := domain.EpochCursor()
	result, err := adapter.Sync(context.Background(), domain.NotionFilter("db-1", "db-2"), &cursor)
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.True(t, result.NextCursor.Since.Equal(edited.Add(time.Hour)))
}

func TestSyncQueryFailureIsAdapterFailure(t *testing.T) {
	db := &fakeDatabase{err: errors.New("401 unauthorized")}
	adapter := newTestAdapter(db, &fakeBlocks{})

	cursor := domain.EpochCursor()
	_, err := adapter.Sync(context.Background(), domain.NotionFilter("db-1"), &cursor)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAdapterFailure)
	assert.True(t, domain.IsRetryable(err))
}

func TestSyncRateLimitClassification(t *testing.T) {
	db := &fakeDatabase{err: errors.New("notion: 429 too many requests")}
	adapter := newTestAdapter(db, &fakeBlocks{})

	cursor := domain.EpochCursor()
	_, err := adapter.Sync(context.Background(), domain.NotionFilter("db-1"), &cursor)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.True(t, domain.IsRetryable(err))
}

func TestSyncRejectsWrongFilterKind(t *testing.T) {
	adapter := newTestAdapter(&fakeDatabase{}, &fakeBlocks{})

	cursor := domain.EpochCursor()
	_, err := adapter.Sync(context.Background(), domain.ObsidianFilter("*.md"), &cursor)
	assert.ErrorIs(t, err, domain.ErrInvalidFilter)
}

func TestRenderBlocks(t *testing.T) {
	blocks := []notionapi.Block{
		&notionapi.Heading1Block{
			BasicBlock: notionapi.BasicBlock{Type: notionapi.BlockTypeHeading1},
			Heading1:   notionapi.Heading{RichText: []notionapi.RichText{{PlainText: "Title"}}},
		},
		paragraph("Intro"),
		&notionapi.BulletedListItemBlock{
			BasicBlock:       notionapi.BasicBlock{Type: notionapi.BlockTypeBulletedListItem},
			BulletedListItem: notionapi.ListItem{RichText: []notionapi.RichText{{PlainText: "first"}}},
		},
		&notionapi.NumberedListItemBlock{
			BasicBlock:       notionapi.BasicBlock{Type: notionapi.BlockTypeNumberedListItem},
			NumberedListItem: notionapi.ListItem{RichText: []notionapi.RichText{{PlainText: "one"}}},
		},
		&notionapi.NumberedListItemBlock{
			BasicBlock:       notionapi.BasicBlock{Type: notionapi.BlockTypeNumberedListItem},
			NumberedListItem: notionapi.ListItem{RichText: []notionapi.RichText{{PlainText: "two"}}},
		},
		&notionapi.CodeBlock{
			BasicBlock: notionapi.BasicBlock{Type: notionapi.BlockTypeCode},
			Code: notionapi.Code{
				RichText: []notionapi.RichText{{PlainText: "x := 1"}},
				Language: "go",
			},
		},
	}

	got := renderBlocks(blocks)
	want := "# Title\n\nIntro\n\n- first\n\n1. one\n\n2. two\n\n```go\nx := 1\n```\n"
	assert.Equal(t, want, got)
}

func TestRenderBlocksNumberingResetsAfterBreak(t *testing.T) {
	blocks := []notionapi.Block{
		&notionapi.NumberedListItemBlock{
			BasicBlock:       notionapi.BasicBlock{Type: notionapi.BlockTypeNumberedListItem},
			NumberedListItem: notionapi.ListItem{RichText: []notionapi.RichText{{PlainText: "one"}}},
		},
		paragraph("break"),
		&notionapi.NumberedListItemBlock{
			BasicBlock:       notionapi.BasicBlock{Type: notionapi.BlockTypeNumberedListItem},
			NumberedListItem: notionapi.ListItem{RichText: []notionapi.RichText{{PlainText: "restart"}}},
		},
	}

	got := renderBlocks(blocks)
	assert.Contains(t, got, "1. one")
	assert.Contains(t, got, "1. restart")
}

func TestPageTitleMissingProperty(t *testing.T) {
	page := notionapi.Page{Properties: notionapi.Properties{}}
	assert.Equal(t, "", pageTitle(&page))
}
