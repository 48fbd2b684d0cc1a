// Package record persists question/answer records, spilling text beyond a field's size limit into overflow blocks.
package record

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cchalm/learnlog/internal/metadata"
)

// StatusNew is the review status given to every new record
const StatusNew = "🆕 New"

// Record is the primary entry for one question/answer pair
type Record struct {
	Title          string              `json:"title"`
	Question       string              `json:"question"`
	Answer         string              `json:"answer"`
	Topics         []string            `json:"topics"`
	Difficulty     metadata.Difficulty `json:"difficulty"`
	Status         string              `json:"status"`
	LastReviewed   time.Time           `json:"last_reviewed"`
	ReviewInterval int                 `json:"review_interval"`
}

// Store is the destination of records
type Store interface {
	// CreateRecord creates a record and returns its identifier
	CreateRecord(ctx context.Context, rec Record) (string, error)
	// AppendOverflow appends text blocks, in order, to the body of an existing record
	AppendOverflow(ctx context.Context, recordID string, blocks []string) error
}

// ErrCreateRecord wraps failures to create the primary record. Nothing was persisted for the pair.
var ErrCreateRecord = errors.New("failed to create record")

// PartialWriteError reports that the primary record exists but some overflow blocks could not be appended. The
// first Appended blocks are persisted; the rest are not.
type PartialWriteError struct {
	RecordID string
	Appended int
	Total    int
	Err      error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("record %s: appended %d of %d overflow blocks: %v", e.RecordID, e.Appended, e.Total, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}
