package answers_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formsync/pkg/answers"
	"github.com/goliatone/go-formsync/pkg/model"
)

func strPtr(s string) *string { return &s }

func TestCollect_SkipsBlocksWithoutIDAndKeepsOrder(t *testing.T) {
	blocks := []model.QuestionBlock{
		{QuestionID: "q2", Controls: []model.Control{{Kind: model.ControlText, Value: "second"}}},
		{Controls: []model.Control{{Kind: model.ControlText, Value: "orphan"}}},
		{QuestionID: "q1", Controls: []model.Control{{Kind: model.ControlTextArea, Value: "first\nline"}}},
		{QuestionID: "q3"},
	}

	got := answers.Collect(blocks)
	want := []model.Answer{
		{QuestionID: "q2", ResponseText: strPtr("second"), SelectedOptionIDs: []string{}},
		{QuestionID: "q1", ResponseText: strPtr("first\nline"), SelectedOptionIDs: []string{}},
		{QuestionID: "q3", SelectedOptionIDs: []string{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("answers mismatch (-want +got):\n%s", diff)
	}
}

func TestCollect_TextualValuesRoundTripVerbatim(t *testing.T) {
	values := []string{"", "  padded  ", "7", "юникод ✓", "<b>raw</b>"}
	for _, value := range values {
		for _, kind := range []model.ControlKind{model.ControlText, model.ControlTextArea, model.ControlRange} {
			got := answers.Collect([]model.QuestionBlock{{
				QuestionID: "q",
				Controls:   []model.Control{{Kind: kind, Value: value}},
			}})
			if len(got) != 1 || got[0].ResponseText == nil || *got[0].ResponseText != value {
				t.Fatalf("%s: expected response text %q, got %#v", kind, value, got)
			}
		}
	}
}

func TestCollect_Radio(t *testing.T) {
	unchecked := model.QuestionBlock{QuestionID: "q1", Controls: []model.Control{
		{Kind: model.ControlRadio, Value: "yes"},
		{Kind: model.ControlRadio, Value: "no"},
	}}
	got := answers.Collect([]model.QuestionBlock{unchecked})
	if len(got[0].SelectedOptionIDs) != 0 || got[0].ResponseText != nil {
		t.Fatalf("expected empty answer, got %#v", got[0])
	}

	checked := model.QuestionBlock{QuestionID: "q1", Controls: []model.Control{
		{Kind: model.ControlRadio, Value: "yes", Checked: true},
		{Kind: model.ControlRadio, Value: "no"},
	}}
	got = answers.Collect([]model.QuestionBlock{checked})

	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[{"question_id":"q1","response_text":null,"selected_option_ids":["yes"]}]`
	if string(raw) != want {
		t.Fatalf("wire mismatch\nwant: %s\n got: %s", want, raw)
	}
}

func TestCollect_CheckboxesInDocumentOrder(t *testing.T) {
	block := model.QuestionBlock{QuestionID: "q", Controls: []model.Control{
		{Kind: model.ControlCheckbox, Value: "c", Checked: true},
		{Kind: model.ControlCheckbox, Value: "a"},
		{Kind: model.ControlCheckbox, Value: "b", Checked: true},
	}}
	got := answers.Collect([]model.QuestionBlock{block})
	if diff := cmp.Diff([]string{"c", "b"}, got[0].SelectedOptionIDs); diff != "" {
		t.Fatalf("selection mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildPayload_DecodesToken(t *testing.T) {
	cases := map[string]string{
		"abc%3D%3D": "abc==",
		"plain":     "plain",
		"bad%zz":    "bad%zz",
		"":          "",
	}
	for in, want := range cases {
		payload := answers.BuildPayload(nil, in)
		if payload.CSRFToken != want {
			t.Fatalf("token %q: want %q, got %q", in, want, payload.CSRFToken)
		}
		if payload.Answers == nil {
			t.Fatalf("answers must serialise as an array")
		}
	}
}
