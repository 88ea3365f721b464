package snapshot_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formsync/pkg/model"
	"github.com/goliatone/go-formsync/pkg/snapshot"
)

func TestValidateRequired(t *testing.T) {
	blocks := []model.QuestionBlock{
		{QuestionID: "text-empty", Controls: []model.Control{{Kind: model.ControlText, Required: true}}},
		{QuestionID: "text-filled", Controls: []model.Control{{Kind: model.ControlText, Value: "x", Required: true}}},
		{QuestionID: "radio-none", Controls: []model.Control{
			{Kind: model.ControlRadio, Name: "r", Value: "a", Required: true},
			{Kind: model.ControlRadio, Name: "r", Value: "b"},
		}},
		{QuestionID: "radio-picked", Controls: []model.Control{
			{Kind: model.ControlRadio, Name: "r", Value: "a", Required: true},
			{Kind: model.ControlRadio, Name: "r", Value: "b", Checked: true},
		}},
		{QuestionID: "optional", Controls: []model.Control{{Kind: model.ControlTextArea}}},
		{QuestionID: "box-sibling", Controls: []model.Control{
			{Kind: model.ControlCheckbox, Name: "c", Value: "a", Required: true},
			{Kind: model.ControlCheckbox, Name: "c", Value: "b", Checked: true},
		}},
		{QuestionID: "box-checked", Controls: []model.Control{
			{Kind: model.ControlCheckbox, Name: "c", Value: "a", Required: true, Checked: true},
			{Kind: model.ControlCheckbox, Name: "c", Value: "b"},
		}},
	}

	got := snapshot.ValidateRequired(blocks, "required")
	want := []model.ValidationIssue{
		{QuestionID: "text-empty", Message: "required"},
		{QuestionID: "radio-none", Message: "required"},
		{QuestionID: "box-sibling", Message: "required"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}
