package tabular

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/godilite/survey-insights/internal/repository/models"
	"github.com/godilite/survey-insights/internal/survey"
)

// FileStore is an append-only Response Store backed by one CSV file. The
// header is fixed when the file is created; later appends must fit it.
type FileStore struct {
	mu      sync.Mutex
	path    string
	catalog *survey.Catalog
	header  []string
	cols    []column
}

// NewFileStore opens path, creating it with DefaultHeader when missing or
// empty. An existing header is checked against catalog.
func NewFileStore(path string, catalog *survey.Catalog) (*FileStore, error) {
	if catalog == nil {
		panic("catalog must not be nil")
	}
	header, err := readHeader(path)
	if err != nil {
		return nil, err
	}
	if header == nil {
		header = DefaultHeader(catalog)
		if err := createFile(path, header); err != nil {
			return nil, err
		}
	}
	cols, err := resolveHeader(header, catalog)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if !slices.Contains(header, ColumnID) {
		return nil, fmt.Errorf("%s: %w: no %q column", path, ErrMissingHeader, ColumnID)
	}
	return &FileStore{path: path, catalog: catalog, header: header, cols: cols}, nil
}

func readHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	return header, nil
}

func createFile(path string, header []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Header returns the file's columns.
func (s *FileStore) Header() []string {
	return slices.Clone(s.header)
}

// Append validates resp and writes it as one row.
func (s *FileStore) Append(ctx context.Context, resp models.Response) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, err := resp.Builder().Build(s.catalog)
	if err != nil {
		return err
	}
	row, err := encodeRow(s.cols, rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		f.Close()
		return fmt.Errorf("append %s: %w", rec.ID(), err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("append %s: %w", rec.ID(), err)
	}
	return f.Close()
}

func (s *FileStore) load(ctx context.Context, keep func(time.Time) bool) ([]models.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	f, err := os.Open(s.path)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	records, err := Decode(f, s.catalog)
	f.Close()
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}

	out := make([]models.Response, 0, len(records))
	for _, r := range records {
		if keep(r.Timestamp()) {
			out = append(out, models.FromRecord(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// LoadAll returns every stored response ordered by submission time and id.
func (s *FileStore) LoadAll(ctx context.Context) ([]models.Response, error) {
	return s.load(ctx, func(time.Time) bool { return true })
}

// LoadBetween returns the responses submitted within [start, end].
// Responses without a timestamp are never in a window.
func (s *FileStore) LoadBetween(ctx context.Context, start, end time.Time) ([]models.Response, error) {
	return s.load(ctx, func(ts time.Time) bool {
		return !ts.IsZero() && !ts.Before(start) && !ts.After(end)
	})
}
