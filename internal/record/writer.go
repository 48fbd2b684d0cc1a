package record

import (
	"context"
	"fmt"
	"time"

	"github.com/cchalm/learnlog/internal/metadata"
)

const (
	// DefaultCeiling leaves headroom below the store's 2000 character limit per text field
	DefaultCeiling = 1990
	// MaxBatchSize is the largest number of blocks the store accepts in one append
	MaxBatchSize = 50
)

type WriterConfig struct {
	// Ceiling is the maximum number of characters per text field and per overflow block
	Ceiling int
	// BatchSize is the number of overflow blocks sent per append, capped at MaxBatchSize
	BatchSize int
}

// Writer turns a question, answer and metadata into a record plus ordered overflow blocks
type Writer struct {
	store     Store
	ceiling   int
	batchSize int
	now       func() time.Time
}

func NewWriter(store Store, cfg WriterConfig) *Writer {
	w := &Writer{
		store:     store,
		ceiling:   cfg.Ceiling,
		batchSize: cfg.BatchSize,
		now:       time.Now,
	}
	if w.ceiling <= 0 {
		w.ceiling = DefaultCeiling
	}
	if w.batchSize <= 0 || w.batchSize > MaxBatchSize {
		w.batchSize = MaxBatchSize
	}
	return w
}

// WriteResult describes what was persisted for one pair. RecordID is empty when the record could not be created.
type WriteResult struct {
	RecordID       string
	OverflowBlocks int
	Err            error
}

// Write creates the record, then appends the part of the answer beyond the ceiling as overflow blocks. A failed
// create yields an error wrapping ErrCreateRecord and no appends. A failed append yields a *PartialWriteError and
// stops further appends; blocks already appended are kept.
func (w *Writer) Write(ctx context.Context, question, answer string, meta metadata.Metadata) WriteResult {
	rec := Record{
		Title:          prefix(meta.Title, w.ceiling),
		Question:       prefix(question, w.ceiling),
		Answer:         prefix(answer, w.ceiling),
		Topics:         meta.Topics,
		Difficulty:     meta.Difficulty,
		Status:         StatusNew,
		LastReviewed:   w.now().UTC(),
		ReviewInterval: 1,
	}
	if rec.Topics == nil {
		rec.Topics = []string{}
	}

	id, err := w.store.CreateRecord(ctx, rec)
	if err != nil {
		return WriteResult{Err: fmt.Errorf("%w: %w", ErrCreateRecord, err)}
	}

	overflow := Split(answer[len(rec.Answer):], w.ceiling)
	appended := 0
	for len(overflow) > appended {
		end := min(appended+w.batchSize, len(overflow))
		err := w.store.AppendOverflow(ctx, id, overflow[appended:end])
		if err != nil {
			return WriteResult{
				RecordID:       id,
				OverflowBlocks: appended,
				Err: &PartialWriteError{
					RecordID: id,
					Appended: appended,
					Total:    len(overflow),
					Err:      err,
				},
			}
		}
		appended = end
	}

	return WriteResult{RecordID: id, OverflowBlocks: appended}
}
