package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/godilite/survey-insights/internal/analytics"
	"github.com/godilite/survey-insights/internal/questionnaire"
	"github.com/godilite/survey-insights/internal/survey"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

const backToken = "b"

var errBack = errors.New("back")

// takeCmd runs the questionnaire in the terminal
var takeCmd = &cobra.Command{
	Use:   "take",
	Short: "Answer the questionnaire interactively",
	Long: `Walks through the questionnaire pages: demographics, expectations,
then satisfaction. Leave an answer empty to skip it and enter "b" to go
back a page. The response is stored when the satisfaction page is done.`,
	Args: cobra.NoArgs,
	RunE: runTake,
}

var stageLegend = map[survey.Kind]string{
	survey.KindExpectation:  "1 not expected at all, 2 hardly expected, 3 neutral, 4 somewhat expected, 5 strongly expected",
	survey.KindSatisfaction: "1 very dissatisfied, 2 dissatisfied, 3 neutral, 4 satisfied, 5 very satisfied",
}

type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func (p *prompter) say(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *prompter) ask(prompt string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", prompt)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}

func runTake(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	application, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	p := &prompter{in: bufio.NewScanner(cmd.InOrStdin()), out: cmd.OutOrStdout()}
	rec, err := runSession(ctx, questionnaire.NewSession(application.Catalog()), p, application)
	if err != nil {
		return err
	}
	p.say("Thank you! Response %s recorded.", rec.ID())
	return nil
}

// runSession drives s from the intro page to submission.
func runSession(ctx context.Context, s *questionnaire.Session, p *prompter, sub questionnaire.Submitter) (survey.Record, error) {
	for {
		switch s.Stage() {
		case questionnaire.StageIntro:
			p.say("Employee satisfaction survey")
			p.say("Rate how much you expect from the company, then how satisfied you are.")
			if _, err := p.ask("Press Enter to begin"); err != nil {
				return survey.Record{}, err
			}
			if err := s.Next(); err != nil {
				return survey.Record{}, err
			}

		case questionnaire.StageDemographics:
			if err := step(s, askDemographics(s, p)); err != nil {
				return survey.Record{}, err
			}

		case questionnaire.StageExpectation:
			if err := step(s, askRatings(s, p)); err != nil {
				return survey.Record{}, err
			}

		case questionnaire.StageSatisfaction:
			err := askRatings(s, p)
			if errors.Is(err, errBack) {
				if err := s.Back(); err != nil {
					return survey.Record{}, err
				}
				continue
			}
			if err != nil {
				return survey.Record{}, err
			}

			rec, err := s.Submit(ctx, sub)
			if errors.Is(err, questionnaire.ErrIncomplete) {
				p.say("Not finished yet: %v", err)
				if len(s.Missing(survey.KindExpectation)) > 0 {
					if err := s.Back(); err != nil {
						return survey.Record{}, err
					}
				}
				continue
			}
			return rec, err

		default:
			rec, _ := s.Record()
			return rec, nil
		}
	}
}

// step moves forward after a completed page or back when asked to.
func step(s *questionnaire.Session, pageErr error) error {
	switch {
	case errors.Is(pageErr, errBack):
		return s.Back()
	case pageErr != nil:
		return pageErr
	default:
		return s.Next()
	}
}

func askDemographics(s *questionnaire.Session, p *prompter) error {
	prompts := []struct {
		attr, label string
	}{
		{survey.AttrDepartment, "Department"},
		{survey.AttrPosition, "Position (" + strings.Join(analytics.PositionOrdering, ", ") + ")"},
		{survey.AttrYearsOfService, "Years of service"},
	}
	for _, pr := range prompts {
		answer, err := p.ask(pr.label)
		if err != nil {
			return err
		}
		if answer == backToken {
			return errBack
		}
		if answer == "" {
			continue
		}
		if err := s.SetDemographic(pr.attr, answer); err != nil {
			return err
		}
	}
	return nil
}

func askRatings(s *questionnaire.Session, p *prompter) error {
	kind, _ := s.Kind()
	p.say("%s: %s", kind, stageLegend[kind])

	for _, q := range s.Questions() {
		for {
			answer, err := p.ask(fmt.Sprintf("[%s/%s] %s (%s)", q.Key.Section, q.Key.Category, q.Text, q.Scale))
			if err != nil {
				return err
			}
			if answer == backToken {
				return errBack
			}
			if answer == "" {
				break
			}
			score, err := cast.ToIntE(answer)
			if err == nil {
				err = s.Answer(q.Key, score)
			}
			if err == nil {
				break
			}
			p.say("  %q is not a valid answer, use %s", answer, q.Scale)
		}
	}
	return nil
}
