// Package contract carries the OpenAPI description of the answers endpoint
// and validates payloads against it.
package contract

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// OperationSubmitAnswers is the operation id of the answers endpoint.
const OperationSubmitAnswers = "submitAnswers"

//go:embed answers.yaml
var document []byte

// ErrUnknownOperation is returned when an operation id is not in the
// document.
var ErrUnknownOperation = errors.New("contract: unknown operation")

// Document returns the raw OpenAPI document.
func Document() []byte {
	out := make([]byte, len(document))
	copy(out, document)
	return out
}

// Operation is one path + method pair of the document.
type Operation struct {
	ID      string
	Method  string
	Path    string
	Summary string
	request *openapi3.Schema
}

// Contract is a loaded and validated document.
type Contract struct {
	spec       *openapi3.T
	operations map[string]Operation
}

// Load parses and validates the embedded document.
func Load(ctx context.Context) (*Contract, error) {
	return LoadFromData(ctx, document)
}

// LoadFromData parses and validates raw.
func LoadFromData(ctx context.Context, raw []byte) (*Contract, error) {
	if len(raw) == 0 {
		return nil, errors.New("contract: document is empty")
	}
	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("contract: load document: %w", err)
	}
	if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("contract: validate: %w", err)
	}
	if spec.Paths == nil || spec.Paths.Len() == 0 {
		return nil, errors.New("contract: document does not contain any paths")
	}

	c := &Contract{spec: spec, operations: make(map[string]Operation)}
	for path, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			c.collect(method, path, op)
		}
	}
	return c, nil
}

func (c *Contract) collect(method, path string, op *openapi3.Operation) {
	if op == nil {
		return
	}
	id := op.OperationID
	if id == "" {
		id = strings.ToLower(method) + ":" + path
	}
	c.operations[id] = Operation{
		ID:      id,
		Method:  method,
		Path:    path,
		Summary: op.Summary,
		request: jsonBodySchema(op.RequestBody),
	}
}

// Operations lists the operations sorted by id.
func (c *Contract) Operations() []Operation {
	out := make([]Operation, 0, len(c.operations))
	for _, op := range c.operations {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Operation looks up an operation by id.
func (c *Contract) Operation(id string) (Operation, error) {
	op, ok := c.operations[id]
	if !ok {
		return Operation{}, fmt.Errorf("%w: %s", ErrUnknownOperation, id)
	}
	return op, nil
}

// ValidateRequest checks a JSON request body against the operation's
// request schema. Operations without a body schema accept anything.
func (c *Contract) ValidateRequest(operationID string, body []byte) error {
	op, err := c.Operation(operationID)
	if err != nil {
		return err
	}
	if op.request == nil {
		return nil
	}
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return fmt.Errorf("contract: decode body: %w", err)
	}
	if err := op.request.VisitJSON(value); err != nil {
		return fmt.Errorf("contract: %s: %w", operationID, err)
	}
	return nil
}

// ValidateResponse checks a JSON response body against the schema declared
// for status.
func (c *Contract) ValidateResponse(operationID string, status int, body []byte) error {
	op, err := c.Operation(operationID)
	if err != nil {
		return err
	}
	item := c.spec.Paths.Find(op.Path)
	if item == nil {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, operationID)
	}
	raw := item.GetOperation(op.Method)
	if raw == nil || raw.Responses == nil {
		return nil
	}
	ref := raw.Responses.Status(status)
	if ref == nil || ref.Value == nil {
		return fmt.Errorf("contract: %s: undeclared status %d", operationID, status)
	}
	media := ref.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil
	}
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return fmt.Errorf("contract: decode body: %w", err)
	}
	if err := media.Schema.Value.VisitJSON(value); err != nil {
		return fmt.Errorf("contract: %s %d: %w", operationID, status, err)
	}
	return nil
}

func jsonBodySchema(body *openapi3.RequestBodyRef) *openapi3.Schema {
	if body == nil || body.Value == nil {
		return nil
	}
	media := body.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil {
		return nil
	}
	return media.Schema.Value
}
