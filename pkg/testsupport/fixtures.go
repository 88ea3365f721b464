// Package testsupport holds fixture and golden-file helpers shared by the
// package tests.
package testsupport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formsync/pkg/model"
)

// UpdateEnv enables golden rewrites when set.
const UpdateEnv = "UPDATE_GOLDENS"

// MustLoadBlocks reads a JSON fixture holding question blocks.
func MustLoadBlocks(t *testing.T, path string) []model.QuestionBlock {
	t.Helper()

	blocks, err := LoadBlocks(path)
	if err != nil {
		t.Fatalf("load blocks: %v", err)
	}
	return blocks
}

// LoadBlocks returns the blocks without requiring testing.T so setup code
// outside a test can share fixtures.
func LoadBlocks(path string) ([]model.QuestionBlock, error) {
	if path == "" {
		return nil, errors.New("testsupport: blocks path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: read blocks: %w", err)
	}
	var out []model.QuestionBlock
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("testsupport: unmarshal blocks: %w", err)
	}
	return out, nil
}

// MustLoadPayload reads a JSON golden holding a submission payload.
func MustLoadPayload(t *testing.T, path string) model.SubmissionPayload {
	t.Helper()

	var out model.SubmissionPayload
	if err := json.Unmarshal(MustReadGolden(t, path), &out); err != nil {
		t.Fatalf("unmarshal payload golden: %v", err)
	}
	return out
}

// WriteGolden writes value as indented JSON when UPDATE_GOLDENS is set.
// It reports whether the file was written so the caller can stop early.
func WriteGolden(t *testing.T, path string, value any) bool {
	t.Helper()
	if os.Getenv(UpdateEnv) == "" {
		return false
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	return WriteMaybeGolden(t, path, append(payload, '\n'))
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set.
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv(UpdateEnv) == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// DiffJSON compares two JSON documents structurally. Key order and
// whitespace are ignored.
func DiffJSON(t *testing.T, want, got []byte) string {
	t.Helper()
	var w, g any
	if err := json.Unmarshal(bytes.TrimSpace(want), &w); err != nil {
		t.Fatalf("decode want: %v", err)
	}
	if err := json.Unmarshal(bytes.TrimSpace(got), &g); err != nil {
		t.Fatalf("decode got: %v", err)
	}
	return cmp.Diff(w, g)
}
