package devserver

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Status is the progress of a survey.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Question types. Free-text kinds keep response_text, choice kinds keep the
// selected options.
const (
	QuestionText     = "text"
	QuestionTextArea = "textarea"
	QuestionRange    = "range_slider"
	QuestionRadio    = "radio"
	QuestionCheckbox = "checkbox"
)

// Survey is one respondent's questionnaire.
type Survey struct {
	ID          string     `yaml:"id"`
	Title       string     `yaml:"title"`
	AccessKey   string     `yaml:"access_key"`
	Status      Status     `yaml:"-"`
	SubmittedAt *time.Time `yaml:"-"`
	Questions   []Question `yaml:"questions"`
}

// Question is a survey question in display order.
type Question struct {
	ID       string   `yaml:"id"`
	Text     string   `yaml:"text"`
	Type     string   `yaml:"type"`
	Required bool     `yaml:"required"`
	Min      string   `yaml:"min"`
	Max      string   `yaml:"max"`
	Step     string   `yaml:"step"`
	Options  []Choice `yaml:"options"`
}

// Choice is a selectable answer of a choice question.
type Choice struct {
	ID   string `yaml:"id"`
	Text string `yaml:"text"`
}

// Question looks up a question by id.
func (s Survey) Question(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// HasOption reports whether the question owns option id.
func (q Question) HasOption(id string) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// FreeText reports whether answers to q are stored as text.
func (q Question) FreeText() bool {
	switch q.Type {
	case QuestionText, QuestionTextArea, QuestionRange:
		return true
	}
	return false
}

//go:embed demo.yaml
var demoSurveys []byte

type surveyFile struct {
	Surveys []Survey `yaml:"surveys"`
}

// DemoSurveys returns the built-in sample surveys.
func DemoSurveys() ([]Survey, error) {
	return DecodeSurveys(bytes.NewReader(demoSurveys))
}

// LoadSurveys reads survey definitions from a YAML file.
func LoadSurveys(path string) ([]Survey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("devserver: open surveys: %w", err)
	}
	defer f.Close()
	return DecodeSurveys(f)
}

// DecodeSurveys parses and checks survey definitions.
func DecodeSurveys(r io.Reader) ([]Survey, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var file surveyFile
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("devserver: decode surveys: %w", err)
	}
	for i := range file.Surveys {
		if err := normalizeSurvey(&file.Surveys[i]); err != nil {
			return nil, err
		}
	}
	return file.Surveys, nil
}

func normalizeSurvey(s *Survey) error {
	if s.ID == "" {
		return errors.New("devserver: survey without id")
	}
	s.Status = StatusNotStarted
	seen := map[string]bool{}
	for i := range s.Questions {
		q := &s.Questions[i]
		if q.ID == "" {
			return fmt.Errorf("devserver: survey %s: question %d has no id", s.ID, i)
		}
		if seen[q.ID] {
			return fmt.Errorf("devserver: survey %s: duplicate question %s", s.ID, q.ID)
		}
		seen[q.ID] = true
		switch q.Type {
		case QuestionText, QuestionTextArea:
		case QuestionRange:
			if q.Min == "" {
				q.Min = "1"
			}
			if q.Max == "" {
				q.Max = "10"
			}
			if q.Step == "" {
				q.Step = "1"
			}
		case QuestionRadio, QuestionCheckbox:
			if len(q.Options) == 0 {
				return fmt.Errorf("devserver: survey %s: question %s has no options", s.ID, q.ID)
			}
		default:
			return fmt.Errorf("devserver: survey %s: question %s has unknown type %q", s.ID, q.ID, q.Type)
		}
	}
	return nil
}
