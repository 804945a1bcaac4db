package models

import (
	"sort"
	"time"

	"github.com/godilite/survey-insights/internal/survey"
)

// Response is the stored form of one submission.
type Response struct {
	ID           string
	SubmittedAt  time.Time
	Demographics map[string]string
	Ratings      []Rating
	Comments     []Comment
}

type Rating struct {
	Kind     string
	Section  string
	Category string
	Index    int
	Score    int
}

type Comment struct {
	Section  string
	Category string
	Index    int
	Text     string
}

// FromRecord flattens a record for storage. Ratings and comments are sorted
// by column name.
func FromRecord(r survey.Record) Response {
	resp := Response{
		ID:           r.ID(),
		SubmittedAt:  r.Timestamp(),
		Demographics: r.Demographics(),
	}
	for rk, score := range r.Ratings() {
		resp.Ratings = append(resp.Ratings, Rating{
			Kind:     string(rk.Kind),
			Section:  rk.Key.Section,
			Category: rk.Key.Category,
			Index:    rk.Key.Index,
			Score:    score,
		})
	}
	sort.Slice(resp.Ratings, func(i, j int) bool {
		return resp.Ratings[i].column() < resp.Ratings[j].column()
	})
	for k, text := range r.Comments() {
		resp.Comments = append(resp.Comments, Comment{Section: k.Section, Category: k.Category, Index: k.Index, Text: text})
	}
	sort.Slice(resp.Comments, func(i, j int) bool {
		return resp.Comments[i].key().String() < resp.Comments[j].key().String()
	})
	return resp
}

// Builder loads the stored answers into a record builder. The caller
// validates them with Build.
func (m Response) Builder() *survey.Builder {
	b := survey.NewBuilder().WithID(m.ID).At(m.SubmittedAt)
	for attr, v := range m.Demographics {
		b.SetDemographic(attr, v)
	}
	for _, r := range m.Ratings {
		b.Rate(survey.Kind(r.Kind), survey.Key{Section: r.Section, Category: r.Category, Index: r.Index}, r.Score)
	}
	for _, c := range m.Comments {
		b.Comment(c.key(), c.Text)
	}
	return b
}

func (r Rating) column() string {
	return survey.RatingColumn(survey.Kind(r.Kind), survey.Key{Section: r.Section, Category: r.Category, Index: r.Index})
}

func (c Comment) key() survey.Key {
	return survey.Key{Section: c.Section, Category: c.Category, Index: c.Index}
}
