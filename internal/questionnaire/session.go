package questionnaire

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godilite/survey-insights/internal/survey"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrIncomplete        = errors.New("questionnaire incomplete")
)

// Submitter stores a finished record.
type Submitter interface {
	Submit(ctx context.Context, rec survey.Record) error
}

// Session walks one respondent through the questionnaire. Answers
// accumulate in a builder; the immutable record only exists after Submit.
// A Session is not safe for concurrent use.
type Session struct {
	catalog *survey.Catalog
	stage   Stage
	answers *survey.Builder
	record  survey.Record
	now     func() time.Time
}

func NewSession(catalog *survey.Catalog) *Session {
	if catalog == nil {
		panic("catalog must not be nil")
	}
	return &Session{
		catalog: catalog,
		stage:   StageIntro,
		answers: survey.NewBuilder(),
		now:     time.Now,
	}
}

func (s *Session) Stage() Stage {
	return s.stage
}

// Next moves to the following page.
func (s *Session) Next() error {
	to, ok := forward[s.stage]
	if !ok {
		return fmt.Errorf("%w: next from %s", ErrInvalidTransition, s.stage)
	}
	s.stage = to
	return nil
}

// Back returns to the previous page. Answers are kept.
func (s *Session) Back() error {
	to, ok := backward[s.stage]
	if !ok {
		return fmt.Errorf("%w: back from %s", ErrInvalidTransition, s.stage)
	}
	s.stage = to
	return nil
}

func (s *Session) require(stages ...Stage) error {
	for _, st := range stages {
		if s.stage == st {
			return nil
		}
	}
	return fmt.Errorf("%w: not allowed on %s page", ErrInvalidTransition, s.stage)
}

// SetDemographic records a demographic answer. An empty value clears it.
func (s *Session) SetDemographic(attr, value string) error {
	if err := s.require(StageDemographics); err != nil {
		return err
	}
	s.answers.SetDemographic(attr, value)
	return nil
}

// Kind returns the rating kind collected on the current page.
func (s *Session) Kind() (survey.Kind, bool) {
	switch s.stage {
	case StageExpectation:
		return survey.KindExpectation, true
	case StageSatisfaction:
		return survey.KindSatisfaction, true
	default:
		return "", false
	}
}

// Answer rates question k with the current page's kind. The score is
// checked against the question's scale right away.
func (s *Session) Answer(k survey.Key, score int) error {
	kind, ok := s.Kind()
	if !ok {
		return fmt.Errorf("%w: not allowed on %s page", ErrInvalidTransition, s.stage)
	}
	if err := s.catalog.CheckRating(kind, k, score); err != nil {
		return err
	}
	s.answers.Rate(kind, k, score)
	return nil
}

// Comment attaches free text to question k. Empty text clears it.
func (s *Session) Comment(k survey.Key, text string) error {
	if err := s.require(StageExpectation, StageSatisfaction); err != nil {
		return err
	}
	if _, ok := s.catalog.Question(k); !ok {
		return &survey.ValidationError{Field: survey.CommentColumn(k), Err: survey.ErrUnknownQuestion}
	}
	s.answers.Comment(k, text)
	return nil
}

// Questions returns the questions asked on the current page, in catalog
// order.
func (s *Session) Questions() []survey.Question {
	kind, ok := s.Kind()
	if !ok {
		return nil
	}
	var out []survey.Question
	for _, q := range s.catalog.Questions() {
		if q.Accepts(kind) {
			out = append(out, q)
		}
	}
	return out
}

// Missing lists the paired questions still lacking an answer of the given
// kind.
func (s *Session) Missing(kind survey.Kind) []survey.Key {
	var out []survey.Key
	for _, q := range s.catalog.Questions() {
		if q.Type != survey.TypePaired {
			continue
		}
		if _, ok := s.answers.Rating(kind, q.Key); !ok {
			out = append(out, q.Key)
		}
	}
	return out
}

// Submit stamps the submission time, builds the record and hands it to
// sub. It is only legal on the satisfaction page and requires every paired
// question to be answered on both kinds. On failure the session stays on
// the satisfaction page.
func (s *Session) Submit(ctx context.Context, sub Submitter) (survey.Record, error) {
	if s.stage != StageSatisfaction {
		return survey.Record{}, fmt.Errorf("%w: submit from %s", ErrInvalidTransition, s.stage)
	}
	for _, kind := range survey.Kinds {
		if missing := s.Missing(kind); len(missing) > 0 {
			return survey.Record{}, fmt.Errorf("%w: %d %s answers missing, first %s", ErrIncomplete, len(missing), kind, missing[0])
		}
	}

	rec, err := s.answers.At(s.now().UTC()).Build(s.catalog)
	if err != nil {
		return survey.Record{}, err
	}
	if err := sub.Submit(ctx, rec); err != nil {
		return survey.Record{}, fmt.Errorf("submit response: %w", err)
	}

	s.record = rec
	s.stage = StageComplete
	return rec, nil
}

// Record returns the submitted record once the session is complete.
func (s *Session) Record() (survey.Record, bool) {
	return s.record, s.stage == StageComplete
}
