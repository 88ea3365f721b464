package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formsync/pkg/model"
	"github.com/goliatone/go-formsync/pkg/snapshot"
	"github.com/goliatone/go-formsync/pkg/snapshot/memory"
)

func sampleBlocks() []model.QuestionBlock {
	return []model.QuestionBlock{
		{QuestionID: "name", Controls: []model.Control{{Kind: model.ControlText, Required: true}}},
		{QuestionID: "score", Controls: []model.Control{{Kind: model.ControlRange, Value: "5", Min: "1", Max: "10"}}},
		{QuestionID: "agree", Controls: []model.Control{
			{Kind: model.ControlRadio, Name: "agree", Value: "yes", Required: true},
			{Kind: model.ControlRadio, Name: "agree", Value: "no"},
		}},
		{QuestionID: "tags", Controls: []model.Control{
			{Kind: model.ControlCheckbox, Name: "tags", Value: "a"},
			{Kind: model.ControlCheckbox, Name: "tags", Value: "b"},
		}},
	}
}

func TestForm_MutationsEmitEvents(t *testing.T) {
	form := memory.New(model.FormAttributes{Endpoint: "/api"}, sampleBlocks())
	var events []string
	cancel := form.Observe(func(ev model.InputEvent) {
		events = append(events, ev.QuestionID+"="+ev.Value)
	})

	must(t, form.SetValue("name", "Ada"))
	must(t, form.SetChecked("agree", "yes", true))
	must(t, form.SetChecked("agree", "no", true))
	must(t, form.SetChecked("tags", "b", true))
	cancel()
	must(t, form.SetValue("score", "9"))

	if diff := cmp.Diff([]string{"name=Ada", "agree=yes", "agree=no", "tags=b"}, events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	blocks, err := form.Blocks(context.Background())
	must(t, err)
	if blocks[0].Controls[0].Value != "Ada" || blocks[1].Controls[0].Value != "9" {
		t.Fatalf("text values not applied: %#v", blocks)
	}
	if blocks[2].Controls[0].Checked || !blocks[2].Controls[1].Checked {
		t.Fatalf("radio group not exclusive: %#v", blocks[2])
	}
	if blocks[3].Controls[0].Checked || !blocks[3].Controls[1].Checked {
		t.Fatalf("checkbox state wrong: %#v", blocks[3])
	}
}

func TestForm_BlocksAreCopies(t *testing.T) {
	form := memory.New(model.FormAttributes{}, sampleBlocks())
	blocks, _ := form.Blocks(context.Background())
	blocks[0].Controls[0].Value = "mutated"
	again, _ := form.Blocks(context.Background())
	if again[0].Controls[0].Value != "" {
		t.Fatalf("snapshot leaked internal state")
	}
}

func TestForm_ValidateAndErrors(t *testing.T) {
	form := memory.New(model.FormAttributes{}, sampleBlocks(), memory.WithRequiredMessage("req"))
	issues, err := form.Validate(context.Background())
	must(t, err)
	want := []model.ValidationIssue{{QuestionID: "name", Message: "req"}, {QuestionID: "agree", Message: "req"}}
	if diff := cmp.Diff(want, issues); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}

	if err := form.SetValue("missing", "x"); !errors.Is(err, snapshot.ErrUnknownQuestion) {
		t.Fatalf("expected ErrUnknownQuestion, got %v", err)
	}
	if err := form.SetValue("agree", "x"); err == nil {
		t.Fatalf("expected error writing text into a choice question")
	}
	if err := form.SetChecked("tags", "zzz", true); err == nil {
		t.Fatalf("expected error for unknown option")
	}

	must(t, form.MirrorRange(context.Background(), "score", "7"))
	if v, ok := form.RangeLabel("score"); !ok || v != "7" {
		t.Fatalf("range label not recorded")
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
