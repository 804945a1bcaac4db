package questionnaire

import "fmt"

// Stage is a page of the questionnaire.
type Stage int

const (
	StageIntro Stage = iota
	StageDemographics
	StageExpectation
	StageSatisfaction
	StageComplete
)

func (s Stage) String() string {
	switch s {
	case StageIntro:
		return "intro"
	case StageDemographics:
		return "demographics"
	case StageExpectation:
		return "expectation"
	case StageSatisfaction:
		return "satisfaction"
	case StageComplete:
		return "complete"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// forward lists the transitions taken by Next. Satisfaction only leaves
// through Submit.
var forward = map[Stage]Stage{
	StageIntro:        StageDemographics,
	StageDemographics: StageExpectation,
	StageExpectation:  StageSatisfaction,
}

// backward lists the transitions taken by Back.
var backward = map[Stage]Stage{
	StageDemographics: StageIntro,
	StageExpectation:  StageDemographics,
	StageSatisfaction: StageExpectation,
}
