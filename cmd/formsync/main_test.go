package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/goliatone/go-formsync/pkg/controller"
	"github.com/goliatone/go-formsync/pkg/devserver"
	"github.com/goliatone/go-formsync/pkg/model"
	"github.com/goliatone/go-formsync/pkg/prompt"
	"github.com/goliatone/go-formsync/pkg/snapshot/browser"
	"github.com/goliatone/go-formsync/pkg/snapshot/memory"
	"github.com/goliatone/go-formsync/pkg/transport"
)

type fixture struct {
	store  *devserver.Store
	server *httptest.Server
}

func (f *fixture) formURL() string { return f.server.URL + "/form/demo?t=demo-key" }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := devserver.Open(ctx, "sqlite", "file:"+filepath.Join(t.TempDir(), "cli.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := devserver.NewStore(db)
	require.NoError(t, store.Migrate(ctx))
	surveys, err := devserver.DemoSurveys()
	require.NoError(t, err)
	require.NoError(t, store.Seed(ctx, surveys))

	srv, err := devserver.New(ctx, store,
		devserver.WithLogger(zaptest.NewLogger(t)),
		devserver.WithSecret([]byte("cli-secret")))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{store: store, server: ts}
}

func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	t.Setenv("FORMSYNC_LOCALE", "en")
	t.Setenv("FORMSYNC_DEBOUNCE", "1h")
	t.Setenv("FORMSYNC_BASE_URL", "")
	buf := a.out.(*bytes.Buffer)
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func testApp(t *testing.T) *app {
	a := newApp(&bytes.Buffer{})
	a.logger = zaptest.NewLogger(t)
	return a
}

type scriptedDriver struct {
	inputs  []string
	infos   []string
	confirm bool
}

func (d *scriptedDriver) Input(_ context.Context, cfg prompt.InputConfig) (string, error) {
	if len(d.inputs) == 0 {
		return cfg.Default, nil
	}
	v := d.inputs[0]
	d.inputs = d.inputs[1:]
	return v, nil
}

func (d *scriptedDriver) TextArea(context.Context, prompt.TextAreaConfig) (string, error) {
	return "reliable", nil
}

func (d *scriptedDriver) Select(context.Context, prompt.SelectConfig) (int, error) {
	return 0, nil
}

func (d *scriptedDriver) MultiSelect(context.Context, prompt.SelectConfig) ([]int, error) {
	return []int{0, 2}, nil
}

func (d *scriptedDriver) Confirm(context.Context, prompt.ConfirmConfig) (bool, error) {
	return d.confirm, nil
}

func (d *scriptedDriver) Info(_ context.Context, msg string) error {
	d.infos = append(d.infos, msg)
	return nil
}

func TestSend_Draft(t *testing.T) {
	f := newFixture(t)
	out, err := run(t, testApp(t), "send", f.formURL())
	require.NoError(t, err)
	assert.Contains(t, out, "Saved!")

	sv, err := f.store.Survey(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, devserver.StatusInProgress, sv.Status)
}

func TestSend_FinalBlockedByRequiredQuestions(t *testing.T) {
	f := newFixture(t)
	out, err := run(t, testApp(t), "send", "--final", f.formURL())
	var verr *controller.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, out, "Please fill in all required fields (*)")
}

func TestSend_LocalFileWithoutBaseURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(`<form id="survey-form" data-api="/api/surveys/x/answers"></form>`), 0o644))

	_, err := run(t, testApp(t), "send", path)
	require.Error(t, err)
	assert.ErrorContains(t, err, "relative")
}

func TestFill_SubmitsThroughPrompts(t *testing.T) {
	f := newFixture(t)
	a := testApp(t)
	driver := &scriptedDriver{inputs: []string{"8", "core"}, confirm: true}
	a.driver = driver

	out, err := run(t, a, "fill", f.formURL())
	require.NoError(t, err)
	assert.Contains(t, out, "Continue at /thanks")
	assert.Equal(t, []string{"Your answers have been recorded."}, driver.infos)

	ctx := context.Background()
	sv, err := f.store.Survey(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, devserver.StatusCompleted, sv.Status)

	stored, err := f.store.Answers(ctx, "demo")
	require.NoError(t, err)
	require.NotNil(t, stored["1"].ResponseText)
	assert.Equal(t, "reliable", *stored["1"].ResponseText)
	require.NotNil(t, stored["2"].ResponseText)
	assert.Equal(t, "8", *stored["2"].ResponseText)
	assert.Equal(t, []string{"31"}, stored["3"].SelectedOptionIDs)
	assert.Equal(t, []string{"41", "43"}, stored["4"].SelectedOptionIDs)
}

func TestFill_DeclinedSubmitSavesDraft(t *testing.T) {
	f := newFixture(t)
	a := testApp(t)
	a.driver = &scriptedDriver{inputs: []string{"3", ""}, confirm: false}

	out, err := run(t, a, "fill", f.formURL())
	require.NoError(t, err)
	assert.Contains(t, out, "Saved!")

	sv, err := f.store.Survey(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, devserver.StatusInProgress, sv.Status)
}

type okSender struct{ modes []transport.Mode }

func (s *okSender) Send(_ context.Context, _ string, _ model.SubmissionPayload, mode transport.Mode) (transport.Result, error) {
	s.modes = append(s.modes, mode)
	return transport.Result{Status: 200, OK: true, Final: mode == transport.Final}, nil
}

func TestServeActions_StopsAfterSubmit(t *testing.T) {
	form := memory.New(model.FormAttributes{Endpoint: "/answers"}, []model.QuestionBlock{
		{QuestionID: "1", Controls: []model.Control{{Kind: model.ControlText, Value: "x"}}},
	})
	sender := &okSender{}
	a := testApp(t)
	ctrl := a.newController(sender, a.terminal())
	ctx := context.Background()
	require.NoError(t, ctrl.Attach(ctx, form))
	defer ctrl.Detach()

	actions := make(chan browser.Action, 3)
	actions <- browser.ActionSave
	actions <- browser.ActionSubmit
	actions <- browser.ActionSave

	done := make(chan error, 1)
	go func() { done <- serveActions(ctx, ctrl, actions, a.logger) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serveActions did not return after submit")
	}
	assert.Equal(t, []transport.Mode{transport.Draft, transport.Final}, sender.modes)
	assert.Len(t, actions, 1)
}

func TestBuildServer_SeedsFromFile(t *testing.T) {
	dir := t.TempDir()
	surveys := filepath.Join(dir, "surveys.yaml")
	require.NoError(t, os.WriteFile(surveys, []byte(`surveys:
  - id: s1
    title: One
    access_key: k
    questions:
      - id: "1"
        text: Name
        type: text
`), 0o644))

	a := testApp(t)
	a.cfg.Server.DatabaseType = "sqlite"
	a.cfg.Server.DatabaseURL = "file:" + filepath.Join(dir, "serve.db")
	a.cfg.Server.SurveysFile = surveys

	srv, closeDB, err := a.buildServer(context.Background(), "s3cret")
	require.NoError(t, err)
	defer closeDB()

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	resp, err := ts.Client().Get(ts.URL + "/form/s1?t=k")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}
