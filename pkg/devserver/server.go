// Package devserver is a reference implementation of the answers endpoint
// and the survey page. It lets the sync controller run end to end against a
// real HTTP server backed by SQLite or Postgres.
package devserver

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formsync/internal/contract"
	"github.com/goliatone/go-formsync/pkg/messages"
	"github.com/goliatone/go-formsync/pkg/model"
	"github.com/goliatone/go-formsync/pkg/page"
)

const maxBody = 1 << 20

// Option configures a Server.
type Option func(*Server)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSecret sets the key signing anti-forgery tokens. A random key is used
// otherwise.
func WithSecret(secret []byte) Option {
	return func(s *Server) {
		if len(secret) > 0 {
			s.tokens.secret = secret
		}
	}
}

// WithRenderer overrides the page renderer.
func WithRenderer(r *page.Renderer) Option {
	return func(s *Server) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithLocalizer selects the language of rendered pages.
func WithLocalizer(l messages.Localizer) Option {
	return func(s *Server) {
		s.messages = l
	}
}

// Server serves the survey page and stores answers.
type Server struct {
	store    *Store
	renderer *page.Renderer
	contract *contract.Contract
	logger   *zap.Logger
	messages messages.Localizer
	tokens   tokens
}

// New builds a Server over store.
func New(ctx context.Context, store *Store, options ...Option) (*Server, error) {
	if store == nil {
		return nil, errors.New("devserver: store is required")
	}
	s := &Server{
		store:    store,
		logger:   zap.NewNop(),
		messages: messages.New(messages.DefaultLocale),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}

	if s.tokens.secret == nil {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("devserver: generate secret: %w", err)
		}
		s.tokens.secret = secret
	}
	if s.renderer == nil {
		r, err := page.NewRenderer()
		if err != nil {
			return nil, err
		}
		s.renderer = r
	}
	c, err := contract.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.contract = c
	return s, nil
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "OK")
	})
	mux.HandleFunc("GET /form/{survey_id}", s.handleForm)
	mux.HandleFunc("POST /api/surveys/{survey_id}/answers", s.handleAnswers)
	mux.HandleFunc("GET /thanks", s.handleThanks)
	return withLogging(s.logger, mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errc
		return nil
	}
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("survey_id")
	sv, err := s.store.Survey(r.Context(), id)
	if errors.Is(err, ErrSurveyNotFound) {
		errorJSON(w, http.StatusNotFound, "Survey not found")
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	access := r.URL.Query().Get("t")
	if sv.AccessKey != "" && access != sv.AccessKey {
		errorJSON(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	stored, err := s.store.Answers(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return
	}

	endpoint := "/api/surveys/" + url.PathEscape(id) + "/answers"
	if access != "" {
		endpoint += "?t=" + url.QueryEscape(access)
	}
	view := page.FormView{
		Title:     sv.Title,
		Lang:      s.messages.Locale,
		Endpoint:  endpoint,
		DoneURL:   "/thanks",
		CSRFToken: s.tokens.issue(w, surveyScope(id)),
		Completed: sv.Status == StatusCompleted,
		Questions: questionViews(sv, stored),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.Form(w, view); err != nil {
		s.logger.Error("render form", zap.String("survey_id", id), zap.Error(err))
	}
}

func (s *Server) handleAnswers(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("survey_id")
	q := r.URL.Query()
	final := q.Get("final") == "true"

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "request body too large")
		return
	}
	if err := s.contract.ValidateRequest(contract.OperationSubmitAnswers, raw); err != nil {
		s.logger.Debug("payload rejected", zap.String("survey_id", id), zap.Error(err))
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	var payload model.SubmissionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if !s.tokens.verify(r, payload.CSRFToken, surveyScope(id)) {
		errorJSON(w, http.StatusForbidden, "Bad CSRF")
		return
	}

	sv, err := s.store.Survey(r.Context(), id)
	if errors.Is(err, ErrSurveyNotFound) {
		errorJSON(w, http.StatusNotFound, "Survey not found")
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	if sv.AccessKey != "" && q.Get("t") != sv.AccessKey {
		errorJSON(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	err = s.store.SaveAnswers(r.Context(), id, payload.Answers, final)
	if errors.Is(err, ErrSurveyCompleted) {
		errorJSON(w, http.StatusConflict, "Survey already submitted")
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}

	s.logger.Info("answers stored",
		zap.String("survey_id", id),
		zap.Bool("final", final),
		zap.Int("answers", len(payload.Answers)),
		zap.String("request_id", r.Header.Get("X-Request-ID")))
	jsonResponse(w, http.StatusOK, syncResult{OK: true, Final: final})
}

func (s *Server) handleThanks(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	view := page.ThanksView{
		Title: s.messages.T(messages.KeyThanksTitle),
		Body:  s.messages.T(messages.KeyThanksBody),
		Lang:  s.messages.Locale,
	}
	if err := s.renderer.Thanks(w, view); err != nil {
		s.logger.Error("render thanks", zap.Error(err))
	}
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", zap.Error(err))
	errorJSON(w, http.StatusInternalServerError, "internal error")
}

func questionViews(sv Survey, stored map[string]model.Answer) []page.QuestionView {
	out := make([]page.QuestionView, 0, len(sv.Questions))
	for _, q := range sv.Questions {
		a := stored[q.ID]
		v := page.QuestionView{
			ID:       q.ID,
			Text:     q.Text,
			Required: q.Required,
			Min:      q.Min,
			Max:      q.Max,
			Step:     q.Step,
		}
		if a.ResponseText != nil {
			v.Value = *a.ResponseText
		}
		switch q.Type {
		case QuestionText:
			v.Kind = page.KindText
		case QuestionTextArea:
			v.Kind = page.KindTextArea
		case QuestionRange:
			v.Kind = page.KindRange
			if v.Value == "" {
				v.Value = q.Min
			}
		case QuestionRadio:
			v.Kind = page.KindRadio
		case QuestionCheckbox:
			v.Kind = page.KindCheckbox
		}
		for _, o := range q.Options {
			checked := false
			for _, sel := range a.SelectedOptionIDs {
				if sel == o.ID {
					checked = true
					break
				}
			}
			v.Options = append(v.Options, page.OptionView{ID: o.ID, Text: o.Text, Checked: checked})
		}
		out = append(out, v)
	}
	return out
}

type syncResult struct {
	OK    bool `json:"ok"`
	Final bool `json:"final"`
}

type errorDetail struct {
	Detail string `json:"detail"`
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func errorJSON(w http.ResponseWriter, status int, detail string) {
	jsonResponse(w, status, errorDetail{Detail: detail})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withLogging(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
