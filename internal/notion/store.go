// Package notion stores records as pages of a Notion database.
package notion

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jomei/notionapi"

	"github.com/cchalm/learnlog/internal/record"
)

// Database property names
const (
	PropTitle          = "Title"
	PropQuestion       = "Question"
	PropAnswer         = "Answer"
	PropTopic          = "Topic"
	PropDifficulty     = "Difficulty"
	PropStatus         = "Status"
	PropLastReviewed   = "Last Reviewed"
	PropReviewInterval = "Review Interval"
)

// Store implements record.Store. Records become pages in a database and overflow blocks become paragraphs
// appended to the page body.
type Store struct {
	client     *notionapi.Client
	databaseID notionapi.DatabaseID
}

// NewStore creates a store for the database with the given id. httpClient may be nil.
func NewStore(token, databaseID string, httpClient *http.Client) *Store {
	opts := []notionapi.ClientOption{}
	if httpClient != nil {
		opts = append(opts, notionapi.WithHTTPClient(httpClient))
	}
	return &Store{
		client:     notionapi.NewClient(notionapi.Token(token), opts...),
		databaseID: notionapi.DatabaseID(databaseID),
	}
}

// Check verifies that the database is reachable with the configured token
func (s *Store) Check(ctx context.Context) error {
	_, err := s.client.Database.Get(ctx, s.databaseID)
	if err != nil {
		return fmt.Errorf("failed to retrieve database %s: %w", s.databaseID, err)
	}
	return nil
}

func (s *Store) CreateRecord(ctx context.Context, rec record.Record) (string, error) {
	page, err := s.client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: s.databaseID,
		},
		Properties: pageProperties(rec),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	return page.ID.String(), nil
}

func (s *Store) AppendOverflow(ctx context.Context, recordID string, blocks []string) error {
	children := make([]notionapi.Block, 0, len(blocks))
	for _, text := range blocks {
		children = append(children, paragraph(text))
	}
	_, err := s.client.Block.AppendChildren(ctx, notionapi.BlockID(recordID), &notionapi.AppendBlockChildrenRequest{
		Children: children,
	})
	if err != nil {
		return fmt.Errorf("failed to append %d blocks to page %s: %w", len(blocks), recordID, err)
	}
	return nil
}

func pageProperties(rec record.Record) notionapi.Properties {
	lastReviewed := notionapi.Date(rec.LastReviewed)
	props := notionapi.Properties{
		PropTitle:    notionapi.TitleProperty{Title: richText(rec.Title)},
		PropQuestion: notionapi.RichTextProperty{RichText: richText(rec.Question)},
		PropAnswer:   notionapi.RichTextProperty{RichText: richText(rec.Answer)},
		PropDifficulty: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(rec.Difficulty)},
		},
		PropStatus: notionapi.SelectProperty{
			Select: notionapi.Option{Name: rec.Status},
		},
		PropLastReviewed: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &lastReviewed},
		},
		PropReviewInterval: notionapi.NumberProperty{Number: float64(rec.ReviewInterval)},
	}

	// Topic is omitted rather than sent empty
	if len(rec.Topics) > 0 {
		options := make([]notionapi.Option, 0, len(rec.Topics))
		for _, topic := range rec.Topics {
			options = append(options, notionapi.Option{Name: topic})
		}
		props[PropTopic] = notionapi.MultiSelectProperty{MultiSelect: options}
	}
	return props
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: content},
		},
	}
}

func paragraph(content string) notionapi.ParagraphBlock {
	return notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeParagraph,
		},
		Paragraph: notionapi.Paragraph{
			RichText: richText(content),
		},
	}
}
