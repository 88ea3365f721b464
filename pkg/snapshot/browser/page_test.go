package browser

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/google/go-cmp/cmp"
	"github.com/ysmood/gson"

	"github.com/goliatone/go-formsync/pkg/model"
	"github.com/goliatone/go-formsync/pkg/page"
)

func TestParseBinding(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    bindingMessage
		wantErr bool
	}{
		{name: "save", in: map[string]any{"action": "save"}, want: bindingMessage{action: ActionSave}},
		{name: "submit", in: map[string]any{"action": "submit"}, want: bindingMessage{action: ActionSubmit}},
		{name: "unknown action", in: map[string]any{"action": "reset"}, wantErr: true},
		{
			name: "range input",
			in:   map[string]any{"question_id": "2", "kind": "range", "value": "7"},
			want: bindingMessage{event: model.InputEvent{QuestionID: "2", Kind: model.ControlRange, Value: "7"}},
		},
		{name: "missing question", in: map[string]any{"kind": "text"}, wantErr: true},
		{name: "bad kind", in: map[string]any{"question_id": "1", "kind": "select"}, wantErr: true},
		{name: "null", in: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBinding(gson.New(tt.in))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(bindingMessage{})); diff != "" {
				t.Fatalf("message mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMutationError(t *testing.T) {
	if err := mutationError("1", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mutationError("1", "no such option"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPage_LiveChrome(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("chrome not available")
	}

	r, err := page.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	var html bytes.Buffer
	err = r.Form(&html, page.FormView{
		Title:     "Live",
		Endpoint:  "/api/surveys/1/answers",
		DoneURL:   "/thanks",
		CSRFToken: "tok",
		Questions: []page.QuestionView{
			{ID: "1", Text: "Name", Kind: page.KindText, Required: true},
			{ID: "2", Text: "Score", Kind: page.KindRange, Min: "1", Max: "10", Value: "5"},
			{ID: "3", Text: "Pick", Kind: page.KindRadio, Options: []page.OptionView{{ID: "31", Text: "A"}, {ID: "32", Text: "B"}}},
		},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(html.Bytes())
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	b, err := Connect(ctx, "", true)
	if err != nil {
		t.Skipf("chrome unavailable: %v", err)
	}
	defer b.Close()

	p, err := Open(ctx, b, srv.URL)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer p.Close()

	attrs, err := p.Attributes(ctx)
	if err != nil {
		t.Fatalf("attributes: %v", err)
	}
	if diff := cmp.Diff(model.FormAttributes{Endpoint: "/api/surveys/1/answers", DoneURL: "/thanks", CSRFToken: "tok"}, attrs); diff != "" {
		t.Fatalf("attributes mismatch (-want +got):\n%s", diff)
	}

	issues, err := p.Validate(ctx)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(issues) != 1 || issues[0].QuestionID != "1" {
		t.Fatalf("issues = %+v", issues)
	}

	got := make(chan model.InputEvent, 4)
	cancelObserve := p.Observe(func(ev model.InputEvent) {
		select {
		case got <- ev:
		default:
		}
	})
	defer cancelObserve()

	if err := p.SetValue("2", "8"); err != nil {
		t.Fatalf("set value: %v", err)
	}
	select {
	case ev := <-got:
		if ev.QuestionID != "2" || ev.Kind != model.ControlRange || ev.Value != "8" {
			t.Fatalf("event = %+v", ev)
		}
	case <-ctx.Done():
		t.Fatalf("no input event delivered")
	}

	if err := p.MirrorRange(ctx, "2", "8"); err != nil {
		t.Fatalf("mirror: %v", err)
	}
	if err := p.SetChecked("3", "32", true); err != nil {
		t.Fatalf("set checked: %v", err)
	}
	blocks, err := p.Blocks(ctx)
	if err != nil {
		t.Fatalf("blocks: %v", err)
	}
	if len(blocks) != 3 || !blocks[2].Controls[1].Checked {
		t.Fatalf("blocks = %+v", blocks)
	}
}
