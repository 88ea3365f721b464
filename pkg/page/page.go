// Package page renders the survey page and its confirmation page. The markup
// is the contract read by the form snapshots: a form with data-api and
// data-done, question blocks carrying data-qid and the token exposed as
// window.__CSRF__.
package page

import (
	"embed"
	"io"
	"io/fs"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates returns the embedded template set.
func Templates() fs.FS {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Question kinds understood by the form template.
const (
	KindText     = "text"
	KindTextArea = "textarea"
	KindRange    = "range"
	KindRadio    = "radio"
	KindCheckbox = "checkbox"
)

// OptionView is one selectable option of a choice question.
type OptionView struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// QuestionView is one question block.
type QuestionView struct {
	ID       string       `json:"id"`
	Text     string       `json:"text"`
	Kind     string       `json:"kind"`
	Required bool         `json:"required"`
	Value    string       `json:"value"`
	Min      string       `json:"min,omitempty"`
	Max      string       `json:"max,omitempty"`
	Step     string       `json:"step,omitempty"`
	Options  []OptionView `json:"options,omitempty"`
}

// FormView is the data rendered by the form template.
type FormView struct {
	Title     string         `json:"title"`
	Lang      string         `json:"lang"`
	Endpoint  string         `json:"endpoint"`
	DoneURL   string         `json:"done_url"`
	CSRFToken string         `json:"csrf_token"`
	Completed bool           `json:"completed"`
	Questions []QuestionView `json:"questions"`
	Labels    Labels         `json:"labels"`
}

// Labels are the button and notice captions.
type Labels struct {
	Save      string `json:"save"`
	Submit    string `json:"submit"`
	Completed string `json:"completed"`
}

// DefaultLabels are used when a view carries none.
var DefaultLabels = Labels{Save: "Save", Submit: "Submit", Completed: "This survey has already been submitted."}

// ThanksView is the data rendered by the confirmation template.
type ThanksView struct {
	Title string `json:"title"`
	Lang  string `json:"lang"`
	Body  string `json:"body"`
}

// Renderer renders the two survey pages.
type Renderer struct {
	engine *Engine
}

// NewRenderer builds a Renderer. Options configure the underlying Engine.
func NewRenderer(options ...Option) (*Renderer, error) {
	engine, err := NewEngine(options...)
	if err != nil {
		return nil, err
	}
	return &Renderer{engine: engine}, nil
}

// Form writes the survey page.
func (r *Renderer) Form(w io.Writer, view FormView) error {
	if view.Labels == (Labels{}) {
		view.Labels = DefaultLabels
	}
	if view.Lang == "" {
		view.Lang = "en"
	}
	_, err := r.engine.RenderTemplate("form", view, w)
	return err
}

// Thanks writes the confirmation page.
func (r *Renderer) Thanks(w io.Writer, view ThanksView) error {
	if view.Lang == "" {
		view.Lang = "en"
	}
	_, err := r.engine.RenderTemplate("thanks", view, w)
	return err
}
