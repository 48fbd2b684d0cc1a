package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Document is what a FileStore keeps per record
type Document struct {
	ID       string   `json:"id"`
	Record   Record   `json:"record"`
	Overflow []string `json:"overflow"`
}

// FileStore implements Store with one JSON file per record in a directory
type FileStore struct {
	dir string // The directory record files are written to

	mu sync.Mutex
}

// NewFileStore creates a file store, creating dir if needed
func NewFileStore(dir string) (*FileStore, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (fs *FileStore) CreateRecord(ctx context.Context, rec Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc := Document{
		ID:       uuid.NewString(),
		Record:   rec,
		Overflow: []string{},
	}
	if err := fs.set(doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

func (fs *FileStore) AppendOverflow(ctx context.Context, recordID string, blocks []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.Get(recordID)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("record %s does not exist", recordID)
	}
	doc.Overflow = append(doc.Overflow, blocks...)
	return fs.set(*doc)
}

// Get returns the document stored for recordID, or nil if there is none
func (fs *FileStore) Get(recordID string) (*Document, error) {
	b, err := os.ReadFile(fs.path(recordID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	var doc Document
	err = json.Unmarshal(b, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal record document: %w", err)
	}
	return &doc, nil
}

func (fs *FileStore) set(doc Document) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record document: %w", err)
	}
	err = os.WriteFile(fs.path(doc.ID), b, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (fs *FileStore) path(recordID string) string {
	return filepath.Join(fs.dir, filepath.Base(recordID)+".json")
}
