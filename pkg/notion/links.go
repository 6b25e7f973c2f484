package notion

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// Link is one outbound link harvested from a Notion page.
type Link struct {
	URL        string    `json:"url"`
	AnchorText string    `json:"anchor_text"`
	SourcePage string    `json:"source_page"`
	CapturedAt time.Time `json:"captured_at"`
}

// maxDepth bounds recursion into nested blocks; Notion pages in practice
// nest tables and toggles two or three levels deep.
const maxDepth = 5

// ExtractLinks walks a page's block tree and returns every href found in
// rich text, bookmark, and embed blocks, in document order. Duplicate
// URLs are kept; the caller owns deduplication policy.
func ExtractLinks(ctx context.Context, c Client, pageID string) ([]Link, error) {
	var out []Link
	if err := walkBlocks(ctx, c, pageID, pageID, 0, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func walkBlocks(ctx context.Context, c Client, pageID, blockID string, depth int, out *[]Link) error {
	if depth > maxDepth {
		return nil
	}

	cursor := ""
	for {
		resp, err := c.GetBlockChildren(ctx, blockID, cursor)
		if err != nil {
			return eris.Wrapf(err, "notion: walk page %s", pageID)
		}

		for _, block := range resp.Results {
			collectBlockLinks(block, pageID, out)

			if block.GetHasChildren() {
				if err := walkBlocks(ctx, c, pageID, string(block.GetID()), depth+1, out); err != nil {
					return err
				}
			}
		}

		if !resp.HasMore {
			return nil
		}
		cursor = string(resp.NextCursor)
	}
}

func collectBlockLinks(block notionapi.Block, pageID string, out *[]Link) {
	switch b := block.(type) {
	case *notionapi.ParagraphBlock:
		collectRichText(b.Paragraph.RichText, pageID, out)
	case *notionapi.Heading1Block:
		collectRichText(b.Heading1.RichText, pageID, out)
	case *notionapi.Heading2Block:
		collectRichText(b.Heading2.RichText, pageID, out)
	case *notionapi.Heading3Block:
		collectRichText(b.Heading3.RichText, pageID, out)
	case *notionapi.BulletedListItemBlock:
		collectRichText(b.BulletedListItem.RichText, pageID, out)
	case *notionapi.NumberedListItemBlock:
		collectRichText(b.NumberedListItem.RichText, pageID, out)
	case *notionapi.ToDoBlock:
		collectRichText(b.ToDo.RichText, pageID, out)
	case *notionapi.ToggleBlock:
		collectRichText(b.Toggle.RichText, pageID, out)
	case *notionapi.QuoteBlock:
		collectRichText(b.Quote.RichText, pageID, out)
	case *notionapi.CalloutBlock:
		collectRichText(b.Callout.RichText, pageID, out)
	case *notionapi.TableRowBlock:
		for _, cell := range b.TableRow.Cells {
			collectRichText(cell, pageID, out)
		}
	case *notionapi.BookmarkBlock:
		if b.Bookmark.URL != "" {
			*out = append(*out, Link{URL: b.Bookmark.URL, SourcePage: pageID, CapturedAt: time.Now().UTC()})
		}
	case *notionapi.EmbedBlock:
		if b.Embed.URL != "" {
			*out = append(*out, Link{URL: b.Embed.URL, SourcePage: pageID, CapturedAt: time.Now().UTC()})
		}
	}
}

func collectRichText(spans []notionapi.RichText, pageID string, out *[]Link) {
	for _, span := range spans {
		href := span.Href
		if href == "" && span.Text != nil && span.Text.Link != nil {
			href = span.Text.Link.Url
		}
		if href == "" {
			continue
		}
		*out = append(*out, Link{
			URL:        href,
			AnchorText: span.PlainText,
			SourcePage: pageID,
			CapturedAt: time.Now().UTC(),
		})
	}
}
