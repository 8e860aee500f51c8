// Package client defines the external collaborators of the pipeline as
// interfaces: the record store scanned for raw conversation records, the
// object store receiving the published artifacts, and the BI refresher. Local
// file-backed implementations ship alongside for development runs and tests.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	cerrors "github.com/otherjamesbrown/convrep/pkg/errors"
)

// ScanPage is one page of raw records plus the continuation token for the
// next page. An empty token means the scan is exhausted.
type ScanPage struct {
	Items     []map[string]any
	NextToken string
}

// RecordStore scans raw records out of the source table.
type RecordStore interface {
	// Scan returns one page starting at the given continuation token.
	// Pass "" for the first page.
	Scan(ctx context.Context, token string) (ScanPage, error)
}

// ScanAll drains a store page by page.
func ScanAll(ctx context.Context, store RecordStore) ([]map[string]any, error) {
	var items []map[string]any
	token := ""
	for {
		page, err := store.Scan(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("scanning records: %w", err)
		}
		items = append(items, page.Items...)
		if page.NextToken == "" {
			return items, nil
		}
		token = page.NextToken
	}
}

// FileRecordStore reads records from a newline-delimited JSON file, one
// object per line. Pages are fixed-size line ranges; the continuation token
// is the next line offset.
type FileRecordStore struct {
	Path     string
	PageSize int
}

// DefaultPageSize bounds how many records a single Scan call returns.
const DefaultPageSize = 500

func NewFileRecordStore(path string) *FileRecordStore {
	return &FileRecordStore{Path: path, PageSize: DefaultPageSize}
}

func (s *FileRecordStore) Scan(ctx context.Context, token string) (ScanPage, error) {
	if err := ctx.Err(); err != nil {
		return ScanPage{}, err
	}

	offset := 0
	if token != "" {
		if _, err := fmt.Sscanf(token, "%d", &offset); err != nil {
			return ScanPage{}, fmt.Errorf("%w: bad continuation token %q", cerrors.ErrValidation, token)
		}
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return ScanPage{}, fmt.Errorf("opening record file: %w", err)
	}
	defer f.Close()

	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var page ScanPage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		if line < offset {
			line++
			continue
		}
		if len(page.Items) == pageSize {
			page.NextToken = fmt.Sprintf("%d", line)
			return page, nil
		}

		raw := scanner.Bytes()
		if len(raw) == 0 {
			line++
			continue
		}
		var item map[string]any
		if err := json.Unmarshal(raw, &item); err != nil {
			return ScanPage{}, cerrors.NewParseError("record", string(raw), err)
		}
		page.Items = append(page.Items, item)
		line++
	}
	if err := scanner.Err(); err != nil {
		return ScanPage{}, fmt.Errorf("reading record file: %w", err)
	}
	return page, nil
}

// StaticRecordStore serves a fixed item slice in one page. Test helper.
type StaticRecordStore struct {
	Items []map[string]any
	Err   error
}

func (s *StaticRecordStore) Scan(ctx context.Context, token string) (ScanPage, error) {
	if s.Err != nil {
		return ScanPage{}, s.Err
	}
	return ScanPage{Items: s.Items}, nil
}
