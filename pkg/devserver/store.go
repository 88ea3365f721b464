package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-formsync/pkg/model"
)

// ErrSurveyNotFound is returned for unknown survey ids.
var ErrSurveyNotFound = errors.New("devserver: survey not found")

// ErrSurveyCompleted rejects writes to a submitted survey.
var ErrSurveyCompleted = errors.New("devserver: survey already completed")

// Open connects to the database selected by dbType ("sqlite" or
// "postgres") and checks the connection.
func Open(ctx context.Context, dbType, dsn string) (*sql.DB, error) {
	driver := dbType
	switch dbType {
	case "sqlite", "":
		driver = "sqlite"
	case "postgres":
	default:
		return nil, fmt.Errorf("devserver: unsupported database type %q", dbType)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("devserver: open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// a single connection serialises writers
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("devserver: ping %s: %w", driver, err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS survey (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    access_key TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'not_started' CHECK (status IN ('not_started', 'in_progress', 'completed')),
    submitted_at TEXT
);

CREATE TABLE IF NOT EXISTS question (
    survey_id TEXT NOT NULL REFERENCES survey(id) ON DELETE CASCADE,
    id TEXT NOT NULL,
    position INTEGER NOT NULL,
    text TEXT NOT NULL,
    type TEXT NOT NULL,
    required INTEGER NOT NULL DEFAULT 0,
    min_value TEXT NOT NULL DEFAULT '',
    max_value TEXT NOT NULL DEFAULT '',
    step_value TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (survey_id, id)
);

CREATE TABLE IF NOT EXISTS question_option (
    survey_id TEXT NOT NULL,
    question_id TEXT NOT NULL,
    id TEXT NOT NULL,
    position INTEGER NOT NULL,
    text TEXT NOT NULL,
    PRIMARY KEY (survey_id, question_id, id)
);

CREATE TABLE IF NOT EXISTS answer (
    id TEXT PRIMARY KEY,
    survey_id TEXT NOT NULL REFERENCES survey(id) ON DELETE CASCADE,
    question_id TEXT NOT NULL,
    response_text TEXT
);

CREATE INDEX IF NOT EXISTS idx_answer_survey_id ON answer(survey_id);

CREATE TABLE IF NOT EXISTS answer_selection (
    answer_id TEXT NOT NULL REFERENCES answer(id) ON DELETE CASCADE,
    option_id TEXT NOT NULL,
    PRIMARY KEY (answer_id, option_id)
);
`

// Store persists surveys and answers through database/sql. Queries use $n
// placeholders, which both drivers accept.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore wraps db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Migrate creates the tables. Safe to call repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("devserver: create schema: %w", err)
	}
	return nil
}

// Seed inserts surveys that do not exist yet. Existing surveys and their
// answers are left untouched.
func (s *Store) Seed(ctx context.Context, surveys []Survey) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, sv := range surveys {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO survey (id, title, access_key) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
			sv.ID, sv.Title, sv.AccessKey)
		if err != nil {
			return fmt.Errorf("devserver: seed survey %s: %w", sv.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		for qi, q := range sv.Questions {
			required := 0
			if q.Required {
				required = 1
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO question (survey_id, id, position, text, type, required, min_value, max_value, step_value)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				sv.ID, q.ID, qi, q.Text, q.Type, required, q.Min, q.Max, q.Step); err != nil {
				return fmt.Errorf("devserver: seed question %s/%s: %w", sv.ID, q.ID, err)
			}
			for oi, o := range q.Options {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO question_option (survey_id, question_id, id, position, text) VALUES ($1, $2, $3, $4, $5)`,
					sv.ID, q.ID, o.ID, oi, o.Text); err != nil {
					return fmt.Errorf("devserver: seed option %s/%s/%s: %w", sv.ID, q.ID, o.ID, err)
				}
			}
		}
	}
	return tx.Commit()
}

// Survey loads a survey with its questions and options.
func (s *Store) Survey(ctx context.Context, id string) (Survey, error) {
	var (
		sv        Survey
		status    string
		submitted sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, access_key, status, submitted_at FROM survey WHERE id = $1`, id,
	).Scan(&sv.ID, &sv.Title, &sv.AccessKey, &status, &submitted)
	if errors.Is(err, sql.ErrNoRows) {
		return Survey{}, ErrSurveyNotFound
	}
	if err != nil {
		return Survey{}, fmt.Errorf("devserver: load survey: %w", err)
	}
	sv.Status = Status(status)
	if submitted.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, submitted.String); err == nil {
			sv.SubmittedAt = &ts
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, type, required, min_value, max_value, step_value
		 FROM question WHERE survey_id = $1 ORDER BY position`, id)
	if err != nil {
		return Survey{}, fmt.Errorf("devserver: load questions: %w", err)
	}
	for rows.Next() {
		var (
			q        Question
			required int
		)
		if err := rows.Scan(&q.ID, &q.Text, &q.Type, &required, &q.Min, &q.Max, &q.Step); err != nil {
			rows.Close()
			return Survey{}, err
		}
		q.Required = required != 0
		sv.Questions = append(sv.Questions, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Survey{}, err
	}

	opts, err := s.db.QueryContext(ctx,
		`SELECT question_id, id, text FROM question_option WHERE survey_id = $1 ORDER BY question_id, position`, id)
	if err != nil {
		return Survey{}, fmt.Errorf("devserver: load options: %w", err)
	}
	defer opts.Close()
	index := make(map[string]int, len(sv.Questions))
	for i, q := range sv.Questions {
		index[q.ID] = i
	}
	for opts.Next() {
		var qid string
		var o Choice
		if err := opts.Scan(&qid, &o.ID, &o.Text); err != nil {
			return Survey{}, err
		}
		if i, ok := index[qid]; ok {
			sv.Questions[i].Options = append(sv.Questions[i].Options, o)
		}
	}
	return sv, opts.Err()
}

// Answers returns the stored answers keyed by question id.
func (s *Store) Answers(ctx context.Context, surveyID string) (map[string]model.Answer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.question_id, a.response_text, COALESCE(sel.option_id, '')
		 FROM answer a LEFT JOIN answer_selection sel ON sel.answer_id = a.id
		 WHERE a.survey_id = $1 ORDER BY a.question_id, sel.option_id`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("devserver: load answers: %w", err)
	}
	defer rows.Close()

	out := map[string]model.Answer{}
	for rows.Next() {
		var (
			qid    string
			text   sql.NullString
			option string
		)
		if err := rows.Scan(&qid, &text, &option); err != nil {
			return nil, err
		}
		a, ok := out[qid]
		if !ok {
			a = model.Answer{QuestionID: qid, SelectedOptionIDs: []string{}}
			if text.Valid {
				v := text.String
				a.ResponseText = &v
			}
		}
		if option != "" {
			a.SelectedOptionIDs = append(a.SelectedOptionIDs, option)
		}
		out[qid] = a
	}
	return out, rows.Err()
}

// SaveAnswers replaces the stored answers of a survey. Answers to unknown
// questions and options that do not belong to their question are dropped.
// A final save completes the survey; a draft moves it out of not_started.
func (s *Store) SaveAnswers(ctx context.Context, surveyID string, answers []model.Answer, final bool) error {
	sv, err := s.Survey(ctx, surveyID)
	if err != nil {
		return err
	}
	if sv.Status == StatusCompleted {
		return ErrSurveyCompleted
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM answer_selection WHERE answer_id IN (SELECT id FROM answer WHERE survey_id = $1)`, surveyID); err != nil {
		return fmt.Errorf("devserver: clear selections: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM answer WHERE survey_id = $1`, surveyID); err != nil {
		return fmt.Errorf("devserver: clear answers: %w", err)
	}

	seen := map[string]bool{}
	for _, a := range answers {
		q, ok := sv.Question(a.QuestionID)
		if !ok || seen[q.ID] {
			continue
		}
		seen[q.ID] = true

		id := uuid.NewString()
		var text sql.NullString
		if q.FreeText() && a.ResponseText != nil {
			text = sql.NullString{String: *a.ResponseText, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO answer (id, survey_id, question_id, response_text) VALUES ($1, $2, $3, $4)`,
			id, surveyID, q.ID, text); err != nil {
			return fmt.Errorf("devserver: insert answer %s: %w", q.ID, err)
		}
		if q.FreeText() {
			continue
		}
		picked := map[string]bool{}
		for _, opt := range a.SelectedOptionIDs {
			if !q.HasOption(opt) || picked[opt] {
				continue
			}
			picked[opt] = true
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO answer_selection (answer_id, option_id) VALUES ($1, $2)`, id, opt); err != nil {
				return fmt.Errorf("devserver: insert selection %s/%s: %w", q.ID, opt, err)
			}
		}
	}

	if final {
		_, err = tx.ExecContext(ctx,
			`UPDATE survey SET status = $1, submitted_at = $2 WHERE id = $3`,
			string(StatusCompleted), s.now().Format(time.RFC3339Nano), surveyID)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE survey SET status = $1 WHERE id = $2 AND status = $3`,
			string(StatusInProgress), surveyID, string(StatusNotStarted))
	}
	if err != nil {
		return fmt.Errorf("devserver: update status: %w", err)
	}
	return tx.Commit()
}
