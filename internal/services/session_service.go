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

// SessionServiceInterface manages practice sessions. Every method is scoped to userID;
// a session owned by someone else behaves as if it did not exist.
type SessionServiceInterface interface {
	CreateSession(ctx context.Context, userID string, req *models.CreateSessionRequest) (*models.Session, error)
	GetMySessions(ctx context.Context, userID string) ([]models.Session, error)
	GetSession(ctx context.Context, userID, sessionID string) (*models.Session, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error
}

// SessionService stores sessions and their questions in PostgreSQL
type SessionService struct {
	db     *sql.DB
	logger *observability.Logger
}

const sessionSelectFields = `id, user_id, role, experience, topics_to_focus, description, created_at, updated_at`

// NewSessionService creates a new SessionService
func NewSessionService(db *sql.DB, logger *observability.Logger) *SessionService {
	return &SessionService{db: db, logger: logger}
}

func scanSession(row interface{ Scan(...interface{}) error }) (*models.Session, error) {
	session := &models.Session{}
	err := row.Scan(&session.ID, &session.UserID, &session.Role, &session.Experience,
		&session.TopicsToFocus, &session.Description, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// CreateSession inserts a session and its initial questions in one transaction
func (s *SessionService) CreateSession(ctx context.Context, userID string, req *models.CreateSessionRequest) (result0 *models.Session, err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "create_session", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	if req == nil || strings.TrimSpace(req.Role) == "" || strings.TrimSpace(req.Experience) == "" || strings.TrimSpace(req.TopicsToFocus) == "" {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "role, experience and topicsToFocus are required")
	}

	now := time.Now().UTC()
	session := &models.Session{
		ID:            uuid.NewString(),
		UserID:        userID,
		Role:          strings.TrimSpace(req.Role),
		Experience:    strings.TrimSpace(req.Experience),
		TopicsToFocus: strings.TrimSpace(req.TopicsToFocus),
		Description:   strings.TrimSpace(req.Description),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseConnection, "failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn(ctx, "Failed to roll back session creation", map[string]interface{}{"error": rbErr.Error()})
			}
		}
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO sessions (id, user_id, role, experience, topics_to_focus, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		session.ID, session.UserID, session.Role, session.Experience, session.TopicsToFocus, session.Description,
		session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to insert session: %w", err)
	}

	session.Questions, err = insertQuestions(ctx, tx, session.ID, req.Questions, now)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to commit session: %w", err)
	}

	s.logger.Info(ctx, "Session created", map[string]interface{}{
		"session_id": session.ID,
		"user_id":    userID,
		"questions":  len(session.Questions),
	})
	return session, nil
}

// GetMySessions lists the user's sessions, newest first, without their questions
func (s *SessionService) GetMySessions(ctx context.Context, userID string) (result0 []models.Session, err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "get_my_sessions", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	query := fmt.Sprintf("SELECT %s FROM sessions WHERE user_id = $1 ORDER BY created_at DESC", sessionSelectFields)
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to list sessions: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": cerr.Error()})
		}
	}()

	sessions := []models.Session{}
	for rows.Next() {
		session, serr := scanSession(rows)
		if serr != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan session: %w", serr)
		}
		session.Questions = []models.Question{}
		sessions = append(sessions, *session)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to iterate sessions: %w", err)
	}

	span.SetAttributes(attribute.Int("sessions.count", len(sessions)))
	return sessions, nil
}

// GetSession returns the session with its questions, pinned first
func (s *SessionService) GetSession(ctx context.Context, userID, sessionID string) (result0 *models.Session, err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "get_session",
		observability.AttributeUserID(userID), observability.AttributeSessionID(sessionID))
	defer observability.FinishSpan(span, &err)

	if _, perr := uuid.Parse(sessionID); perr != nil {
		return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "session not found")
	}

	query := fmt.Sprintf("SELECT %s FROM sessions WHERE id = $1 AND user_id = $2", sessionSelectFields)
	session, err := scanSession(s.db.QueryRowContext(ctx, query, sessionID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "session not found")
		}
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to load session: %w", err)
	}

	session.Questions, err = listQuestions(ctx, s.db, session.ID)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteSession removes the session; its questions go with it through ON DELETE CASCADE
func (s *SessionService) DeleteSession(ctx context.Context, userID, sessionID string) (err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "delete_session",
		observability.AttributeUserID(userID), observability.AttributeSessionID(sessionID))
	defer observability.FinishSpan(span, &err)

	if _, perr := uuid.Parse(sessionID); perr != nil {
		return contextutils.WrapError(contextutils.ErrRecordNotFound, "session not found")
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return contextutils.WrapError(contextutils.ErrRecordNotFound, "session not found")
	}

	s.logger.Info(ctx, "Session deleted", map[string]interface{}{"session_id": sessionID, "user_id": userID})
	return nil
}
