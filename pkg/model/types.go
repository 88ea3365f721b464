package model

import "time"

// SchemaVersion identifies the answers wire format produced by this module.
// Version 1 (a flat question id to value map) is not produced.
const SchemaVersion = 2

// ControlKind names the recognised child inputs of a question block.
type ControlKind string

const (
	ControlText     ControlKind = "text"
	ControlTextArea ControlKind = "textarea"
	ControlRange    ControlKind = "range"
	ControlRadio    ControlKind = "radio"
	ControlCheckbox ControlKind = "checkbox"
)

// Valid reports whether the kind is one of the recognised controls.
func (k ControlKind) Valid() bool {
	switch k {
	case ControlText, ControlTextArea, ControlRange, ControlRadio, ControlCheckbox:
		return true
	}
	return false
}

// Textual reports whether the control carries a raw string value rather than
// a checked state.
func (k ControlKind) Textual() bool {
	return k == ControlText || k == ControlTextArea || k == ControlRange
}

// InputKind is the logical answer kind hosted by a block.
type InputKind string

const (
	InputUnknown      InputKind = ""
	InputFreeText     InputKind = "free-text"
	InputRange        InputKind = "range"
	InputSingleChoice InputKind = "single-choice"
	InputMultiChoice  InputKind = "multi-choice"
)

// Control is a single input element inside a question block.
type Control struct {
	Kind     ControlKind `json:"kind"`
	Name     string      `json:"name,omitempty"`
	Value    string      `json:"value"`
	Checked  bool        `json:"checked,omitempty"`
	Required bool        `json:"required,omitempty"`
	Label    string      `json:"label,omitempty"`
	Min      string      `json:"min,omitempty"`
	Max      string      `json:"max,omitempty"`
	Step     string      `json:"step,omitempty"`
}

// QuestionBlock is a page region holding the controls for one question.
// Blocks without a QuestionID are skipped during collection.
type QuestionBlock struct {
	QuestionID string    `json:"question_id"`
	Prompt     string    `json:"prompt,omitempty"`
	Controls   []Control `json:"controls,omitempty"`
}

// InputKind derives the logical kind from the first recognised control.
func (b QuestionBlock) InputKind() InputKind {
	for _, c := range b.Controls {
		switch c.Kind {
		case ControlText, ControlTextArea:
			return InputFreeText
		case ControlRange:
			return InputRange
		case ControlRadio:
			return InputSingleChoice
		case ControlCheckbox:
			return InputMultiChoice
		}
	}
	return InputUnknown
}

// Required reports whether any control of the block is marked required.
func (b QuestionBlock) Required() bool {
	for _, c := range b.Controls {
		if c.Required {
			return true
		}
	}
	return false
}

// Answer is the collected value of one question block. SelectedOptionIDs is
// never nil so it always serialises as an array.
type Answer struct {
	QuestionID        string   `json:"question_id"`
	ResponseText      *string  `json:"response_text"`
	SelectedOptionIDs []string `json:"selected_option_ids"`
}

// SubmissionPayload is the JSON body posted to the answers endpoint.
type SubmissionPayload struct {
	Answers   []Answer `json:"answers"`
	CSRFToken string   `json:"csrf_token"`
}

// FormAttributes are the host-provided settings of a form.
type FormAttributes struct {
	// Endpoint is the answers URL (data-api).
	Endpoint string `json:"endpoint"`
	// DoneURL is the post-submit redirect (data-done). Empty means the
	// confirmation is shown in place.
	DoneURL string `json:"done_url,omitempty"`
	// CSRFToken is the page's anti-forgery token, possibly URL-encoded.
	CSRFToken string `json:"csrf_token,omitempty"`
}

// InputEvent reports a change of one control.
type InputEvent struct {
	QuestionID string      `json:"question_id"`
	Kind       ControlKind `json:"kind"`
	Value      string      `json:"value"`
	At         time.Time   `json:"at"`
}

// ValidationIssue is a native validation failure for one question.
type ValidationIssue struct {
	QuestionID string `json:"question_id"`
	Message    string `json:"message"`
}
