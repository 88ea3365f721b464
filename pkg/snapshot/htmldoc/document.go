// Package htmldoc exposes a rendered survey page as a form snapshot. The
// page is parsed once; mutations are applied to the parsed tree and can be
// serialised back with Render.
package htmldoc

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/goliatone/go-formsync/pkg/model"
	"github.com/goliatone/go-formsync/pkg/snapshot"
)

const (
	// FormID is the id looked up first when locating the survey form.
	FormID = "survey-form"
	// BlockClass marks a question block.
	BlockClass = "q-block"
	// PromptClass marks the question text inside a block.
	PromptClass = "q-title"
	// RangeLabelClass marks the element mirroring a range value.
	RangeLabelClass = "scale-value"
	// TokenField is the name of the hidden input carrying the token.
	TokenField = "csrf_token"
)

var tokenScript = regexp.MustCompile(`window\.__CSRF__\s*=\s*(?:"([^"]*)"|'([^']*)')`)

// Option configures a Document.
type Option func(*Document)

// WithRequiredMessage sets the message reported for unanswered required
// questions.
func WithRequiredMessage(msg string) Option {
	return func(d *Document) {
		if msg != "" {
			d.requiredMessage = msg
		}
	}
}

// WithNow overrides the timestamp source for input events.
func WithNow(now func() time.Time) Option {
	return func(d *Document) {
		if now != nil {
			d.now = now
		}
	}
}

// Document is a parsed survey page.
type Document struct {
	mu              sync.RWMutex
	root            *html.Node
	attrs           model.FormAttributes
	blocks          []*block
	listeners       map[int]func(model.InputEvent)
	nextListener    int
	requiredMessage string
	now             func() time.Time
}

type block struct {
	id       string
	prompt   string
	controls []*html.Node
	label    *html.Node
}

var (
	_ snapshot.Writable    = (*Document)(nil)
	_ snapshot.Observable  = (*Document)(nil)
	_ snapshot.RangeMirror = (*Document)(nil)
)

// Parse reads a page and locates its survey form. It returns
// snapshot.ErrFormNotFound when the page carries none.
func Parse(r io.Reader, options ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: parse: %w", err)
	}

	form := findForm(root)
	if form == nil {
		return nil, snapshot.ErrFormNotFound
	}

	d := &Document{
		root: root,
		attrs: model.FormAttributes{
			Endpoint:  attr(form, "data-api"),
			DoneURL:   attr(form, "data-done"),
			CSRFToken: findToken(root, form),
		},
		listeners:       make(map[int]func(model.InputEvent)),
		requiredMessage: "This field is required",
		now:             time.Now,
	}
	walk(form, func(n *html.Node) bool {
		if isElement(n, "") && hasClass(n, BlockClass) {
			d.blocks = append(d.blocks, scanBlock(n))
			return false
		}
		return true
	})

	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(d)
	}
	return d, nil
}

// Attributes returns the endpoint, done URL and token found on the page.
func (d *Document) Attributes(ctx context.Context) (model.FormAttributes, error) {
	if err := ctx.Err(); err != nil {
		return model.FormAttributes{}, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.attrs, nil
}

// Blocks reads the current control state of every question block.
func (d *Document) Blocks(ctx context.Context) ([]model.QuestionBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshotLocked(), nil
}

// Validate reports required questions left empty.
func (d *Document) Validate(ctx context.Context) ([]model.ValidationIssue, error) {
	blocks, err := d.Blocks(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.ValidateRequired(blocks, d.requiredMessage), nil
}

// Observe registers a listener for control changes made through the
// mutators.
func (d *Document) Observe(listener func(model.InputEvent)) func() {
	d.mu.Lock()
	id := d.nextListener
	d.nextListener++
	d.listeners[id] = listener
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.listeners, id)
			d.mu.Unlock()
		})
	}
}

// MirrorRange writes value into the range label of a question. Questions
// without a label are left alone.
func (d *Document) MirrorRange(ctx context.Context, questionID, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	b := d.blockLocked(questionID)
	if b == nil {
		return fmt.Errorf("%w: %s", snapshot.ErrUnknownQuestion, questionID)
	}
	if b.label != nil {
		setText(b.label, value)
	}
	return nil
}

// RangeLabel returns the text of a question's range label.
func (d *Document) RangeLabel(questionID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b := d.blockLocked(questionID)
	if b == nil || b.label == nil {
		return "", false
	}
	return strings.TrimSpace(text(b.label)), true
}

// SetValue writes the first text, textarea or range control of a question.
func (d *Document) SetValue(questionID, value string) error {
	d.mu.Lock()
	b := d.blockLocked(questionID)
	if b == nil {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", snapshot.ErrUnknownQuestion, questionID)
	}
	var kind model.ControlKind
	for _, n := range b.controls {
		k := controlKind(n)
		if !k.Textual() {
			continue
		}
		switch k {
		case model.ControlTextArea:
			setText(n, value)
		case model.ControlRange:
			value = snapshot.RangeValue(value, attr(n, "min"), attr(n, "max"), attr(n, "step"))
			setAttr(n, "value", value)
		default:
			setAttr(n, "value", value)
		}
		kind = k
		break
	}
	if kind == "" {
		d.mu.Unlock()
		return fmt.Errorf("htmldoc: question %s has no text control", questionID)
	}
	ev := model.InputEvent{QuestionID: questionID, Kind: kind, Value: value, At: d.now()}
	listeners := d.listenersLocked()
	d.mu.Unlock()

	for _, l := range listeners {
		l(ev)
	}
	return nil
}

// SetChecked checks or unchecks the radio or checkbox carrying value.
// Checking a radio unchecks the rest of its group.
func (d *Document) SetChecked(questionID, value string, checked bool) error {
	d.mu.Lock()
	b := d.blockLocked(questionID)
	if b == nil {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", snapshot.ErrUnknownQuestion, questionID)
	}
	var target *html.Node
	for _, n := range b.controls {
		k := controlKind(n)
		if (k == model.ControlRadio || k == model.ControlCheckbox) && attr(n, "value") == value {
			target = n
			break
		}
	}
	if target == nil {
		d.mu.Unlock()
		return fmt.Errorf("htmldoc: question %s has no option %q", questionID, value)
	}
	kind := controlKind(target)
	if kind == model.ControlRadio && checked {
		group := attr(target, "name")
		for _, n := range b.controls {
			if controlKind(n) == model.ControlRadio && attr(n, "name") == group {
				removeAttr(n, "checked")
			}
		}
	}
	if checked {
		setAttr(target, "checked", "")
	} else {
		removeAttr(target, "checked")
	}
	ev := model.InputEvent{QuestionID: questionID, Kind: kind, Value: value, At: d.now()}
	listeners := d.listenersLocked()
	d.mu.Unlock()

	for _, l := range listeners {
		l(ev)
	}
	return nil
}

// Render writes the page with its current control state.
func (d *Document) Render(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return html.Render(w, d.root)
}

func (d *Document) snapshotLocked() []model.QuestionBlock {
	out := make([]model.QuestionBlock, 0, len(d.blocks))
	for _, b := range d.blocks {
		qb := model.QuestionBlock{QuestionID: b.id, Prompt: b.prompt}
		for _, n := range b.controls {
			qb.Controls = append(qb.Controls, readControl(n))
		}
		out = append(out, qb)
	}
	return out
}

func (d *Document) blockLocked(questionID string) *block {
	if questionID == "" {
		return nil
	}
	for _, b := range d.blocks {
		if b.id == questionID {
			return b
		}
	}
	return nil
}

func (d *Document) listenersLocked() []func(model.InputEvent) {
	ids := make([]int, 0, len(d.listeners))
	for id := range d.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(model.InputEvent), 0, len(ids))
	for _, id := range ids {
		out = append(out, d.listeners[id])
	}
	return out
}

func scanBlock(n *html.Node) *block {
	b := &block{id: attr(n, "data-qid")}
	walk(n, func(c *html.Node) bool {
		if c == n {
			return true
		}
		if controlKind(c) != "" {
			b.controls = append(b.controls, c)
			return false
		}
		if c.Type == html.ElementNode {
			if b.prompt == "" && hasClass(c, PromptClass) {
				b.prompt = strings.TrimSpace(text(c))
			}
			if b.label == nil && hasClass(c, RangeLabelClass) {
				b.label = c
			}
		}
		return true
	})
	return b
}

func readControl(n *html.Node) model.Control {
	kind := controlKind(n)
	c := model.Control{
		Kind:     kind,
		Name:     attr(n, "name"),
		Value:    attr(n, "value"),
		Checked:  hasAttr(n, "checked"),
		Required: hasAttr(n, "required"),
		Min:      attr(n, "min"),
		Max:      attr(n, "max"),
		Step:     attr(n, "step"),
	}
	switch kind {
	case model.ControlTextArea:
		c.Value = text(n)
	case model.ControlRange:
		c.Value = snapshot.RangeValue(c.Value, c.Min, c.Max, c.Step)
	}
	if kind == model.ControlRadio || kind == model.ControlCheckbox {
		c.Label = optionLabel(n)
	}
	return c
}

// optionLabel is the text of the enclosing <label>, or the value.
func optionLabel(n *html.Node) string {
	for p := n.Parent; p != nil; p = p.Parent {
		if isElement(p, "label") {
			if label := strings.TrimSpace(text(p)); label != "" {
				return label
			}
			break
		}
		if hasClass(p, BlockClass) {
			break
		}
	}
	return attr(n, "value")
}

func controlKind(n *html.Node) model.ControlKind {
	switch {
	case isElement(n, "textarea"):
		return model.ControlTextArea
	case isElement(n, "input"):
		t := strings.ToLower(attr(n, "type"))
		if t == "" {
			t = "text"
		}
		if k := model.ControlKind(t); k.Valid() && k != model.ControlTextArea {
			return k
		}
	}
	return ""
}

func findForm(root *html.Node) *html.Node {
	var byID, byAPI *html.Node
	walk(root, func(n *html.Node) bool {
		if byID != nil {
			return false
		}
		if isElement(n, "form") {
			if attr(n, "id") == FormID {
				byID = n
				return false
			}
			if byAPI == nil && hasAttr(n, "data-api") {
				byAPI = n
			}
		}
		return true
	})
	if byID != nil {
		return byID
	}
	return byAPI
}

// findToken looks at the page script first, then a csrf-token meta tag, then
// the hidden form field.
func findToken(root, form *html.Node) string {
	var fromScript, fromMeta string
	walk(root, func(n *html.Node) bool {
		switch {
		case isElement(n, "script") && fromScript == "":
			if m := tokenScript.FindStringSubmatch(text(n)); m != nil {
				fromScript = m[1] + m[2]
			}
			return false
		case isElement(n, "meta") && fromMeta == "" && attr(n, "name") == "csrf-token":
			fromMeta = attr(n, "content")
		}
		return true
	})
	if fromScript != "" {
		return fromScript
	}
	if fromMeta != "" {
		return fromMeta
	}
	var hidden string
	walk(form, func(n *html.Node) bool {
		if hidden == "" && isElement(n, "input") && attr(n, "name") == TokenField {
			hidden = attr(n, "value")
		}
		return hidden == ""
	})
	return hidden
}

// walk visits n and its descendants depth first. Returning false from visit
// skips the node's children.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && (tag == "" || n.Data == tag)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func text(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}

func setText(n *html.Node, value string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
}
