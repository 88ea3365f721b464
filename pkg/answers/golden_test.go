package answers_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-formsync/pkg/answers"
	"github.com/goliatone/go-formsync/pkg/testsupport"
)

func TestBuildPayload_Golden(t *testing.T) {
	blocks := testsupport.MustLoadBlocks(t, filepath.Join("testdata", "blocks.json"))
	payload := answers.BuildPayload(answers.Collect(blocks), "abc%2Fdef%3D%3D")

	golden := filepath.Join("testdata", "payload.golden.json")
	if testsupport.WriteGolden(t, golden, payload) {
		return
	}

	got, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if diff := testsupport.DiffJSON(t, testsupport.MustReadGolden(t, golden), got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}

	decoded := testsupport.MustLoadPayload(t, golden)
	if len(decoded.Answers) != 5 || decoded.Answers[2].ResponseText != nil {
		t.Fatalf("golden answers = %+v", decoded.Answers)
	}
}
