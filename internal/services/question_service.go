package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"interviewprep/internal/models"
	"interviewprep/internal/observability"
	contextutils "interviewprep/internal/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// QuestionServiceInterface manages the questions stored in a user's sessions
type QuestionServiceInterface interface {
	AddQuestions(ctx context.Context, userID string, req *models.AddQuestionsRequest) ([]models.Question, error)
	TogglePin(ctx context.Context, userID, questionID string) (*models.Question, error)
	UpdateNote(ctx context.Context, userID, questionID, note string) (*models.Question, error)
}

// QuestionService provides question persistence scoped through session ownership
type QuestionService struct {
	db     *sql.DB
	logger *observability.Logger
}

// Maximum stored note length in runes
const maxNoteRunes = 5000

const questionSelectFields = `q.id, q.session_id, q.question, q.answer, q.note, q.is_pinned, q.created_at, q.updated_at`

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// NewQuestionService creates a new QuestionService
func NewQuestionService(db *sql.DB, logger *observability.Logger) *QuestionService {
	return &QuestionService{db: db, logger: logger}
}

func scanQuestion(row interface{ Scan(...interface{}) error }) (*models.Question, error) {
	q := &models.Question{}
	err := row.Scan(&q.ID, &q.SessionID, &q.Question, &q.Answer, &q.Note, &q.IsPinned, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// AddQuestions appends pairs to a session the user owns
func (s *QuestionService) AddQuestions(ctx context.Context, userID string, req *models.AddQuestionsRequest) (result0 []models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "add_questions", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	if req == nil || len(req.Questions) == 0 {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "sessionId and questions are required")
	}
	span.SetAttributes(observability.AttributeSessionID(req.SessionID), attribute.Int("questions.count", len(req.Questions)))

	if _, perr := uuid.Parse(req.SessionID); perr != nil {
		return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "session not found")
	}

	var owned bool
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM sessions WHERE id = $1 AND user_id = $2)`,
		req.SessionID, userID).Scan(&owned)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to check session: %w", err)
	}
	if !owned {
		return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "session not found")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseConnection, "failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn(ctx, "Failed to roll back question insert", map[string]interface{}{"error": rbErr.Error()})
			}
		}
	}()

	now := time.Now().UTC()
	created, err := insertQuestions(ctx, tx, req.SessionID, req.Questions, now)
	if err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE sessions SET updated_at = $1 WHERE id = $2`, now, req.SessionID); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to touch session: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to commit questions: %w", err)
	}
	return created, nil
}

// TogglePin flips is_pinned on a question in one of the user's sessions
func (s *QuestionService) TogglePin(ctx context.Context, userID, questionID string) (result0 *models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "toggle_pin",
		observability.AttributeUserID(userID), observability.AttributeQuestionID(questionID))
	defer observability.FinishSpan(span, &err)

	return s.updateOwned(ctx, userID, questionID, `is_pinned = NOT q.is_pinned`)
}

// UpdateNote replaces the note on a question in one of the user's sessions
func (s *QuestionService) UpdateNote(ctx context.Context, userID, questionID, note string) (result0 *models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "update_note",
		observability.AttributeUserID(userID), observability.AttributeQuestionID(questionID))
	defer observability.FinishSpan(span, &err)

	note = strings.TrimSpace(note)
	if r := []rune(note); len(r) > maxNoteRunes {
		note = string(r[:maxNoteRunes])
	}
	return s.updateOwned(ctx, userID, questionID, `note = $3`, note)
}

// updateOwned applies set to the question only when its session belongs to userID.
// $1 is the question id, $2 the user id, and extra args start at $3.
func (s *QuestionService) updateOwned(ctx context.Context, userID, questionID, set string, extra ...interface{}) (*models.Question, error) {
	if _, perr := uuid.Parse(questionID); perr != nil {
		return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "question not found")
	}

	query := fmt.Sprintf(`UPDATE questions AS q SET %s, updated_at = NOW()
		FROM sessions AS s
		WHERE q.id = $1 AND q.session_id = s.id AND s.user_id = $2
		RETURNING %s`, set, questionSelectFields)
	args := append([]interface{}{questionID, userID}, extra...)

	q, err := scanQuestion(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "question not found")
		}
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to update question: %w", err)
	}
	return q, nil
}

// insertQuestions stores items in order. Blank pairs are skipped.
func insertQuestions(ctx context.Context, db execer, sessionID string, items []models.QuestionAnswer, now time.Time) ([]models.Question, error) {
	created := make([]models.Question, 0, len(items))
	for i, item := range items {
		question := strings.TrimSpace(item.Question)
		answer := strings.TrimSpace(item.Answer)
		if question == "" {
			continue
		}

		// Offsetting created_at keeps insertion order stable for listing
		createdAt := now.Add(time.Duration(i) * time.Microsecond)
		q := models.Question{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Question:  question,
			Answer:    answer,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		}
		_, err := db.ExecContext(ctx, `INSERT INTO questions (id, session_id, question, answer, note, is_pinned, created_at, updated_at)
			VALUES ($1, $2, $3, $4, '', FALSE, $5, $6)`,
			q.ID, q.SessionID, q.Question, q.Answer, q.CreatedAt, q.UpdatedAt)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to insert question: %w", err)
		}
		created = append(created, q)
	}
	return created, nil
}

// listQuestions returns a session's questions, pinned first, then in insertion order
func listQuestions(ctx context.Context, db queryer, sessionID string) ([]models.Question, error) {
	query := fmt.Sprintf(`SELECT %s FROM questions AS q WHERE q.session_id = $1
		ORDER BY q.is_pinned DESC, q.created_at ASC`, questionSelectFields)
	rows, err := db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to list questions: %w", err)
	}
	defer rows.Close()

	questions := []models.Question{}
	for rows.Next() {
		q, serr := scanQuestion(rows)
		if serr != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan question: %w", serr)
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to iterate questions: %w", err)
	}
	return questions, nil
}
