package notion

import (
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
)

// renderBlocks flattens a page's top-level blocks to markdown. The
// output only needs to be stable, not a faithful re-rendering: the
// content hash of this text is what drives change detection.
func renderBlocks(blocks []notionapi.Block) string {
	var b strings.Builder
	numbered := 0

	for _, block := range blocks {
		if block.GetType() != notionapi.BlockTypeNumberedListItem {
			numbered = 0
		}

		switch v := block.(type) {
		case *notionapi.ParagraphBlock:
			writeLine(&b, plainText(v.Paragraph.RichText))
		case *notionapi.Heading1Block:
			writeLine(&b, "# "+plainText(v.Heading1.RichText))
		case *notionapi.Heading2Block:
			writeLine(&b, "## "+plainText(v.Heading2.RichText))
		case *notionapi.Heading3Block:
			writeLine(&b, "### "+plainText(v.Heading3.RichText))
		case *notionapi.BulletedListItemBlock:
			writeLine(&b, "- "+plainText(v.BulletedListItem.RichText))
		case *notionapi.NumberedListItemBlock:
			numbered++
			writeLine(&b, fmt.Sprintf("%d. %s", numbered, plainText(v.NumberedListItem.RichText)))
		case *notionapi.ToDoBlock:
			box := "[ ]"
			if v.ToDo.Checked {
				box = "[x]"
			}
			writeLine(&b, "- "+box+" "+plainText(v.ToDo.RichText))
		case *notionapi.QuoteBlock:
			writeLine(&b, "> "+plainText(v.Quote.RichText))
		case *notionapi.CodeBlock:
			b.WriteString("```" + v.Code.Language + "\n")
			b.WriteString(plainText(v.Code.RichText))
			b.WriteString("\n```\n\n")
		case *notionapi.DividerBlock:
			writeLine(&b, "---")
		default:
			// Unsupported block types (embeds, tables, media) are
			// dropped rather than guessed at.
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeLine(b *strings.Builder, line string) {
	b.WriteString(line)
	b.WriteString("\n\n")
}

// plainText concatenates the plain-text runs of a rich text array.
func plainText(rich []notionapi.RichText) string {
	var b strings.Builder
	for _, r := range rich {
		b.WriteString(r.PlainText)
	}
	return b.String()
}

// pageTitle extracts the title property of a page, if any.
func pageTitle(page *notionapi.Page) string {
	for _, prop := range page.Properties {
		if title, ok := prop.(*notionapi.TitleProperty); ok {
			return strings.TrimSpace(plainText(title.Title))
		}
	}
	return ""
}
