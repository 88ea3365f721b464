package present_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/goliatone/go-formsync/pkg/messages"
	"github.com/goliatone/go-formsync/pkg/present"
)

func TestTerminal_Lines(t *testing.T) {
	var buf bytes.Buffer
	p := present.NewTerminal(&buf, messages.New("en"), nil)
	ctx := context.Background()

	p.Alert(ctx, "bad token")
	p.Saved(ctx)
	p.Confirm(ctx, "")
	p.Confirm(ctx, "http://example.test/thanks")

	want := "! bad token\n" +
		"✓ Saved!\n" +
		"✓ Thank you!\n" +
		"Your answers have been recorded.\n" +
		"✓ Continue at http://example.test/thanks\n"
	if got := buf.String(); got != want {
		t.Fatalf("output mismatch\nwant: %q\n got: %q", want, got)
	}
}

func TestMulti_FansOut(t *testing.T) {
	var a, b bytes.Buffer
	theme := present.Theme{ErrorPrefix: "E: "}
	m := present.Multi{
		present.NewTerminal(&a, messages.New("ru"), &theme),
		nil,
		present.NewTerminal(&b, messages.New("ru"), &theme),
	}
	m.Alert(context.Background(), "x")
	m.Saved(context.Background())
	for _, buf := range []*bytes.Buffer{&a, &b} {
		if buf.String() != "E: x\nСохранено!\n" {
			t.Fatalf("unexpected output %q", buf.String())
		}
	}
}
