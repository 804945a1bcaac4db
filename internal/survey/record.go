package survey

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Demographic attribute names used by the questionnaire.
const (
	AttrDepartment     = "department"
	AttrPosition       = "position"
	AttrYearsOfService = "years_of_service"
)

// TimestampLayout is the text form of a submission timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// RatingKey addresses one score inside a record.
type RatingKey struct {
	Kind Kind
	Key  Key
}

// Record is one respondent's submission. Records are values: the accessors
// hand out copies and nothing in this package mutates a built record.
type Record struct {
	id           string
	timestamp    time.Time
	demographics map[string]string
	ratings      map[RatingKey]int
	comments     map[Key]string
}

func (r Record) ID() string {
	return r.id
}

func (r Record) Timestamp() time.Time {
	return r.timestamp
}

// Demographic returns the value of attr and whether the record carries it.
func (r Record) Demographic(attr string) (string, bool) {
	v, ok := r.demographics[attr]
	return v, ok
}

func (r Record) Demographics() map[string]string {
	return maps.Clone(r.demographics)
}

func (r Record) Rating(kind Kind, k Key) (int, bool) {
	v, ok := r.ratings[RatingKey{Kind: kind, Key: k}]
	return v, ok
}

func (r Record) Ratings() map[RatingKey]int {
	return maps.Clone(r.ratings)
}

func (r Record) Comment(k Key) (string, bool) {
	v, ok := r.comments[k]
	return v, ok
}

func (r Record) Comments() map[Key]string {
	return maps.Clone(r.comments)
}

// Builder accumulates answers for a record. It is not safe for concurrent use.
type Builder struct {
	id           string
	timestamp    time.Time
	demographics map[string]string
	ratings      map[RatingKey]int
	comments     map[Key]string
}

// NewBuilder starts a record with a fresh random id.
func NewBuilder() *Builder {
	return &Builder{
		id:           uuid.NewString(),
		demographics: make(map[string]string),
		ratings:      make(map[RatingKey]int),
		comments:     make(map[Key]string),
	}
}

func (b *Builder) WithID(id string) *Builder {
	b.id = id
	return b
}

func (b *Builder) At(ts time.Time) *Builder {
	b.timestamp = ts
	return b
}

// SetDemographic records attr; an empty value removes it.
func (b *Builder) SetDemographic(attr, value string) *Builder {
	if value == "" {
		delete(b.demographics, attr)
		return b
	}
	b.demographics[attr] = value
	return b
}

func (b *Builder) Rate(kind Kind, k Key, score int) *Builder {
	b.ratings[RatingKey{Kind: kind, Key: k}] = score
	return b
}

// Comment records free text for k; empty text removes it.
func (b *Builder) Comment(k Key, text string) *Builder {
	if text == "" {
		delete(b.comments, k)
		return b
	}
	b.comments[k] = text
	return b
}

// Rating returns an answer given so far.
func (b *Builder) Rating(kind Kind, k Key) (int, bool) {
	v, ok := b.ratings[RatingKey{Kind: kind, Key: k}]
	return v, ok
}

// Build validates the accumulated answers against c and returns an
// independent record. The builder stays usable afterwards.
func (b *Builder) Build(c *Catalog) (Record, error) {
	r := Record{
		id:           b.id,
		timestamp:    b.timestamp,
		demographics: maps.Clone(b.demographics),
		ratings:      maps.Clone(b.ratings),
		comments:     maps.Clone(b.comments),
	}
	if err := Validate(r, c); err != nil {
		return Record{}, err
	}
	return r, nil
}
