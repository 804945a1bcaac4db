package analytics

import (
	"errors"
	"fmt"

	"github.com/godilite/survey-insights/internal/survey"
)

// NPSScale selects the promoter/passive/detractor thresholds.
type NPSScale int

const (
	// ScaleZeroToTen is the standard NPS scale: promoters 9-10, passives
	// 7-8, detractors 0-6.
	ScaleZeroToTen NPSScale = iota + 1
	// ScaleOneToFive is the simplified scale: promoters 4-5, passives 3,
	// detractors 1-2.
	ScaleOneToFive
)

var (
	ErrUnknownScale  = errors.New("unknown NPS scale")
	ErrScaleMismatch = errors.New("score outside NPS scale")
)

// InsufficientDataError reports a computation that had nothing to work on.
type InsufficientDataError struct {
	Metric string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s", e.Metric)
}

func (s NPSScale) String() string {
	switch s {
	case ScaleZeroToTen:
		return "0-10"
	case ScaleOneToFive:
		return "1-5"
	default:
		return fmt.Sprintf("NPSScale(%d)", int(s))
	}
}

// Bounds returns the inclusive score range of the scale.
func (s NPSScale) Bounds() survey.Scale {
	switch s {
	case ScaleZeroToTen:
		return survey.Scale{Min: 0, Max: 10}
	case ScaleOneToFive:
		return survey.Scale{Min: 1, Max: 5}
	default:
		return survey.Scale{}
	}
}

// ScaleFor maps a question scale onto an NPS convention.
func ScaleFor(s survey.Scale) (NPSScale, error) {
	switch s {
	case ScaleZeroToTen.Bounds():
		return ScaleZeroToTen, nil
	case ScaleOneToFive.Bounds():
		return ScaleOneToFive, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownScale, s)
	}
}

type tier int

const (
	detractor tier = iota
	passive
	promoter
)

func (s NPSScale) classify(score int) tier {
	promoterMin, passiveMin := 9, 7
	if s == ScaleOneToFive {
		promoterMin, passiveMin = 4, 3
	}
	switch {
	case score >= promoterMin:
		return promoter
	case score >= passiveMin:
		return passive
	default:
		return detractor
	}
}

// NPSResult holds tier counts and percentages. Score is PromoterPct minus
// DetractorPct and lies in [-100, 100].
type NPSResult struct {
	Scale        NPSScale `json:"scale"`
	Total        int      `json:"total"`
	Promoters    int      `json:"promoters"`
	Passives     int      `json:"passives"`
	Detractors   int      `json:"detractors"`
	PromoterPct  float64  `json:"promoter_pct"`
	PassivePct   float64  `json:"passive_pct"`
	DetractorPct float64  `json:"detractor_pct"`
	Score        float64  `json:"score"`
}

// ComputeNPS classifies scores with the thresholds of scale. It fails with
// *InsufficientDataError on an empty input and with ErrScaleMismatch when a
// score lies outside the scale.
func ComputeNPS(scores []int, scale NPSScale) (NPSResult, error) {
	bounds := scale.Bounds()
	if bounds == (survey.Scale{}) {
		return NPSResult{}, fmt.Errorf("%w: %d", ErrUnknownScale, int(scale))
	}
	if len(scores) == 0 {
		return NPSResult{}, &InsufficientDataError{Metric: "nps"}
	}

	res := NPSResult{Scale: scale, Total: len(scores)}
	for _, score := range scores {
		if !bounds.Contains(score) {
			return NPSResult{}, fmt.Errorf("%w: %d not in %s", ErrScaleMismatch, score, scale)
		}
		switch scale.classify(score) {
		case promoter:
			res.Promoters++
		case passive:
			res.Passives++
		default:
			res.Detractors++
		}
	}

	total := float64(res.Total)
	res.PromoterPct = float64(res.Promoters) * 100 / total
	res.PassivePct = float64(res.Passives) * 100 / total
	res.DetractorPct = float64(res.Detractors) * 100 / total
	res.Score = res.PromoterPct - res.DetractorPct
	return res, nil
}

// NPSScores collects the satisfaction scores given to the catalog's NPS
// question and returns them with the scale that question is asked on.
func NPSScores(records []survey.Record, catalog *survey.Catalog) ([]int, NPSScale, error) {
	q, err := catalog.NPSQuestion()
	if err != nil {
		return nil, 0, err
	}
	scale, err := ScaleFor(q.Scale)
	if err != nil {
		return nil, 0, err
	}

	scores := make([]int, 0, len(records))
	for _, r := range records {
		if s, ok := r.Rating(survey.KindSatisfaction, q.Key); ok {
			scores = append(scores, s)
		}
	}
	return scores, scale, nil
}
