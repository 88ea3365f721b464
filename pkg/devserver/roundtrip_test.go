package devserver_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/goliatone/go-formsync/internal/clock"
	"github.com/goliatone/go-formsync/pkg/controller"
	"github.com/goliatone/go-formsync/pkg/devserver"
	"github.com/goliatone/go-formsync/pkg/snapshot/htmldoc"
	"github.com/goliatone/go-formsync/pkg/transport"
)

type recorder struct {
	mu       sync.Mutex
	alerts   []string
	confirms []string
	saved    int
}

func (r *recorder) Alert(_ context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, msg)
}

func (r *recorder) Saved(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved++
}

func (r *recorder) Confirm(_ context.Context, doneURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirms = append(r.confirms, doneURL)
}

func TestRoundTrip_ControllerAgainstServer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	client := transport.New(transport.WithLogger(logger))
	body, pageURL, err := client.FetchPage(ctx, h.server.URL+"/form/demo?t=demo-key")
	require.NoError(t, err)
	client.SetBaseURL(pageURL)

	doc, err := htmldoc.Parse(bytes.NewReader(body))
	require.NoError(t, err)

	clk := clock.NewFake(time.Now())
	presenter := &recorder{}
	ctrl := controller.New(
		controller.WithSender(client),
		controller.WithPresenter(presenter),
		controller.WithLogger(logger),
		controller.WithClock(clk),
	)
	require.NoError(t, ctrl.Attach(ctx, doc))
	defer ctrl.Detach()

	// required questions still empty
	err = ctrl.Submit(ctx)
	var verr *controller.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Issues, 2)

	require.NoError(t, doc.SetValue("1", "reliable"))
	require.NoError(t, doc.SetValue("2", "9"))
	label, _ := doc.RangeLabel("2")
	assert.Equal(t, "9", label)

	clk.Advance(600 * time.Millisecond)
	sv, err := h.store.Survey(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, devserver.StatusInProgress, sv.Status, "autosave should reach the server")

	require.NoError(t, doc.SetChecked("3", "31", true))
	require.NoError(t, doc.SetChecked("4", "42", true))
	require.NoError(t, ctrl.Save(ctx))
	assert.Equal(t, 1, presenter.saved)

	require.NoError(t, ctrl.Submit(ctx))
	assert.Equal(t, []string{"/thanks"}, presenter.confirms)
	assert.Equal(t, []string{"Please fill in all required fields (*)\n" +
		"How would you describe working with this colleague?: This field is required\n" +
		"Would you like to work together again?: This field is required"}, presenter.alerts)
	assert.Equal(t, controller.PhaseDone, ctrl.Phase())

	sv, err = h.store.Survey(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, devserver.StatusCompleted, sv.Status)

	stored, err := h.store.Answers(ctx, "demo")
	require.NoError(t, err)
	require.NotNil(t, stored["1"].ResponseText)
	assert.Equal(t, "reliable", *stored["1"].ResponseText)
	require.NotNil(t, stored["2"].ResponseText)
	assert.Equal(t, "9", *stored["2"].ResponseText)
	assert.Equal(t, []string{"31"}, stored["3"].SelectedOptionIDs)
	assert.Equal(t, []string{"42"}, stored["4"].SelectedOptionIDs)
	require.NotNil(t, stored["5"].ResponseText)
	assert.Equal(t, "", *stored["5"].ResponseText)

	// pending autosave after completion is dropped, drafts are refused
	assert.ErrorIs(t, ctrl.Save(ctx), controller.ErrFinalized)
}

func TestRoundTrip_ServerRejectionIsPresented(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	client := transport.New()
	body, pageURL, err := client.FetchPage(ctx, h.server.URL+"/form/demo?t=demo-key")
	require.NoError(t, err)
	client.SetBaseURL(pageURL)

	// a second page load rotates the cookie seed, invalidating the first token
	_, _, err = client.FetchPage(ctx, h.server.URL+"/form/demo?t=demo-key")
	require.NoError(t, err)

	doc, err := htmldoc.Parse(bytes.NewReader(body))
	require.NoError(t, err)
	presenter := &recorder{}
	ctrl := controller.New(
		controller.WithSender(client),
		controller.WithPresenter(presenter),
		controller.WithDebounce(time.Hour),
	)
	require.NoError(t, ctrl.Attach(ctx, doc))
	defer ctrl.Detach()

	require.NoError(t, doc.SetValue("1", "x"))
	require.NoError(t, doc.SetChecked("3", "32", true))
	err = ctrl.Submit(ctx)
	serverErr, ok := transport.IsServerError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, 403, serverErr.Status)
	assert.Equal(t, []string{"Bad CSRF"}, presenter.alerts)
	assert.Empty(t, presenter.confirms)
	assert.Equal(t, controller.PhaseIdle, ctrl.Phase())
}
