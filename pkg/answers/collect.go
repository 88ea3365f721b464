// Package answers turns question blocks into answers and submission
// payloads. The functions are pure so they can run against any form
// snapshot.
package answers

import (
	"net/url"

	"github.com/goliatone/go-formsync/pkg/model"
)

// Collect returns one answer per block carrying a non-empty question id, in
// block order. Each block is checked for a textual control first (its raw
// value becomes the response text), then for a checked radio, then for every
// checked checkbox. The checks are independent, so a block mixing kinds
// reports all of them.
func Collect(blocks []model.QuestionBlock) []model.Answer {
	out := make([]model.Answer, 0, len(blocks))
	for _, block := range blocks {
		if block.QuestionID == "" {
			continue
		}
		out = append(out, collectBlock(block))
	}
	return out
}

func collectBlock(block model.QuestionBlock) model.Answer {
	answer := model.Answer{
		QuestionID:        block.QuestionID,
		SelectedOptionIDs: []string{},
	}

	for _, c := range block.Controls {
		if c.Kind.Textual() {
			value := c.Value
			answer.ResponseText = &value
			break
		}
	}

	for _, c := range block.Controls {
		if c.Kind == model.ControlRadio && c.Checked {
			answer.SelectedOptionIDs = append(answer.SelectedOptionIDs, c.Value)
			break
		}
	}

	for _, c := range block.Controls {
		if c.Kind == model.ControlCheckbox && c.Checked {
			answer.SelectedOptionIDs = append(answer.SelectedOptionIDs, c.Value)
		}
	}

	return answer
}

// BuildPayload pairs answers with the page token. Tokens are URL-decoded;
// a token that fails to decode is sent as-is.
func BuildPayload(answers []model.Answer, token string) model.SubmissionPayload {
	if answers == nil {
		answers = []model.Answer{}
	}
	return model.SubmissionPayload{
		Answers:   answers,
		CSRFToken: DecodeToken(token),
	}
}

// DecodeToken reverses the percent-encoding applied to tokens embedded in
// page scripts.
func DecodeToken(token string) string {
	decoded, err := url.PathUnescape(token)
	if err != nil {
		return token
	}
	return decoded
}
