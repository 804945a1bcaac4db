package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/godilite/survey-insights/internal/survey"
	"github.com/spf13/cast"
)

// ColumnID holds the record id. Files without it get fresh ids on decode.
const ColumnID = "id"

var (
	ErrMalformedCell   = errors.New("malformed cell")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrMissingHeader   = errors.New("missing header")
)

// DemographicColumns are written first, in this order, when present.
var DemographicColumns = []string{survey.AttrDepartment, survey.AttrPosition, survey.AttrYearsOfService}

type column struct {
	name  string
	field survey.Field
	key   survey.Key
}

// resolveHeader classifies every column of header against c.
func resolveHeader(header []string, c *survey.Catalog) ([]column, error) {
	if len(header) == 0 {
		return nil, ErrMissingHeader
	}
	seen := make(map[string]bool, len(header))
	cols := make([]column, 0, len(header))
	for _, raw := range header {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		if seen[name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
		}
		seen[name] = true

		if name == ColumnID {
			cols = append(cols, column{name: name})
			continue
		}
		field, key, err := c.ResolveColumn(name)
		if err != nil {
			return nil, fmt.Errorf("header: %w", err)
		}
		cols = append(cols, column{name: name, field: field, key: key})
	}
	return cols, nil
}

// ParseTimestamp reads a timestamp cell. It accepts the questionnaire
// layout and RFC 3339; the questionnaire layout is taken as UTC.
func ParseTimestamp(cell string) (time.Time, error) {
	if ts, err := time.ParseInLocation(survey.TimestampLayout, cell, time.UTC); err == nil {
		return ts, nil
	}
	ts, err := time.Parse(time.RFC3339, cell)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

func decodeRow(cols []column, row []string, c *survey.Catalog) (survey.Record, error) {
	b := survey.NewBuilder()
	for i, col := range cols {
		cell := strings.TrimSpace(row[i])
		if cell == "" {
			continue
		}
		switch col.field {
		case "":
			b.WithID(cell)
		case survey.FieldTimestamp:
			ts, err := ParseTimestamp(cell)
			if err != nil {
				return survey.Record{}, &survey.ValidationError{Field: col.name, Err: fmt.Errorf("%w: %q", ErrMalformedCell, cell)}
			}
			b.At(ts)
		case survey.FieldDemographic:
			b.SetDemographic(col.name, cell)
		case survey.FieldComment:
			b.Comment(col.key, cell)
		default:
			kind, _ := col.field.Kind()
			score, err := cast.ToIntE(cell)
			if err != nil {
				return survey.Record{}, &survey.ValidationError{Field: col.name, Err: fmt.Errorf("%w: %q is not a score", ErrMalformedCell, cell)}
			}
			b.Rate(kind, col.key, score)
		}
	}
	return b.Build(c)
}

// Decode reads records in the column convention. The first row is the
// header; empty cells are unanswered. It stops at the first malformed row.
func Decode(r io.Reader, c *survey.Catalog) ([]survey.Record, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := resolveHeader(header, c)
	if err != nil {
		return nil, err
	}

	records := []survey.Record{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := reader.FieldPos(0)
		rec, err := decodeRow(cols, row, c)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
}

// Header returns the columns Encode writes for records: id, timestamp,
// the demographic attributes present (known ones first, then the rest
// sorted) and every question column of c.
func Header(c *survey.Catalog, records []survey.Record) []string {
	seen := make(map[string]bool)
	for _, r := range records {
		for attr := range r.Demographics() {
			seen[attr] = true
		}
	}
	demo := make([]string, 0, len(seen))
	for _, attr := range DemographicColumns {
		if seen[attr] {
			demo = append(demo, attr)
			delete(seen, attr)
		}
	}
	rest := make([]string, 0, len(seen))
	for attr := range seen {
		rest = append(rest, attr)
	}
	sort.Strings(rest)

	header := []string{ColumnID, survey.ColumnTimestamp}
	header = append(header, demo...)
	header = append(header, rest...)
	return append(header, c.Columns()...)
}

// DefaultHeader is the header of a file holding only the known
// demographic attributes.
func DefaultHeader(c *survey.Catalog) []string {
	header := []string{ColumnID, survey.ColumnTimestamp}
	header = append(header, DemographicColumns...)
	return append(header, c.Columns()...)
}

func encodeRow(cols []column, r survey.Record) ([]string, error) {
	for attr := range r.Demographics() {
		if !slices.ContainsFunc(cols, func(c column) bool { return c.name == attr && c.field == survey.FieldDemographic }) {
			return nil, &survey.ValidationError{RecordID: r.ID(), Field: attr, Err: fmt.Errorf("%w: no column for demographic %q", ErrMalformedCell, attr)}
		}
	}

	row := make([]string, len(cols))
	for i, col := range cols {
		switch col.field {
		case "":
			row[i] = r.ID()
		case survey.FieldTimestamp:
			if ts := r.Timestamp(); !ts.IsZero() {
				row[i] = ts.UTC().Format(survey.TimestampLayout)
			}
		case survey.FieldDemographic:
			row[i], _ = r.Demographic(col.name)
		case survey.FieldComment:
			row[i], _ = r.Comment(col.key)
		default:
			kind, _ := col.field.Kind()
			if score, ok := r.Rating(kind, col.key); ok {
				row[i] = cast.ToString(score)
			}
		}
	}
	return row, nil
}

// Encode writes records with a header derived from c and the records.
func Encode(w io.Writer, c *survey.Catalog, records []survey.Record) error {
	header := Header(c, records)
	cols, err := resolveHeader(header, c)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row, err := encodeRow(cols, r)
		if err != nil {
			return err
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write record %s: %w", r.ID(), err)
		}
	}
	writer.Flush()
	return writer.Error()
}
