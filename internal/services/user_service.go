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
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// Default role for self-registered users
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// UserServiceInterface defines the interface for user-related operations.
// This allows for easier mocking in tests.
type UserServiceInterface interface {
	CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	CreateUserWithRole(ctx context.Context, req *models.RegisterRequest, role string) (*models.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// UserService provides methods for user management.
type UserService struct {
	db     *sql.DB
	logger *observability.Logger
}

const userSelectFields = `id, name, email, password_hash, profile_image_url, role, created_at, updated_at`

// NewUserServiceWithLogger creates a new UserService instance with logger
func NewUserServiceWithLogger(db *sql.DB, logger *observability.Logger) *UserService {
	return &UserService{db: db, logger: logger}
}

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.ProfileImageURL,
		&user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser registers a user with the default role
func (s *UserService) CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	return s.CreateUserWithRole(ctx, req, RoleUser)
}

// CreateUserWithRole hashes the password and inserts the user. Emails are stored lower-cased.
func (s *UserService) CreateUserWithRole(ctx context.Context, req *models.RegisterRequest, role string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "create_user", attribute.String("user.role", role))
	defer observability.FinishSpan(span, &err)

	if req == nil {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "registration details are required")
	}
	if err = contextutils.ValidateStruct(req); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to hash password")
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(req.Name),
		Email:           normalizeEmail(req.Email),
		PasswordHash:    string(hashedPassword),
		ProfileImageURL: req.ProfileImageURL,
		Role:            role,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	query := `INSERT INTO users (id, name, email, password_hash, profile_image_url, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = s.db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.PasswordHash,
		user.ProfileImageURL, user.Role, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, contextutils.WrapError(contextutils.ErrRecordExists, "a user with this email already exists")
		}
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to insert user: %w", err)
	}

	s.logger.Info(ctx, "User created", map[string]interface{}{"user_id": user.ID, "role": role})
	return user, nil
}

// AuthenticateUser verifies credentials. Unknown email and wrong password fail identically.
func (s *UserService) AuthenticateUser(ctx context.Context, email, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "authenticate_user")
	defer observability.FinishSpan(span, &err)

	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			return nil, contextutils.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, contextutils.ErrInvalidCredentials
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID
func (s *UserService) GetUserByID(ctx context.Context, id string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_id", observability.AttributeUserID(id))
	defer observability.FinishSpan(span, &err)

	if _, perr := uuid.Parse(id); perr != nil {
		return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "user not found")
	}
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userSelectFields)
	return s.getUserByQuery(ctx, query, id)
}

// GetUserByEmail retrieves a user by email, case-insensitively
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_email")
	defer observability.FinishSpan(span, &err)

	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1", userSelectFields)
	return s.getUserByQuery(ctx, query, normalizeEmail(email))
}

func (s *UserService) getUserByQuery(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "user not found")
		}
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to load user: %w", err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isDuplicateKeyError checks if the error is a duplicate key constraint violation
func isDuplicateKeyError(err error) bool {
	var pqErr *pq.Error
	// PostgreSQL error code 23505 is for unique constraint violations
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
