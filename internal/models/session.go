package models

import "time"

// Session is a practice session owned by one user
type Session struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	Role          string     `json:"role"`
	Experience    string     `json:"experience"`
	TopicsToFocus string     `json:"topicsToFocus"`
	Description   string     `json:"description,omitempty"`
	Questions     []Question `json:"questions"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Question is a stored question/answer pair belonging to a session
type Question struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Note      string    `json:"note"`
	IsPinned  bool      `json:"isPinned"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateSessionRequest is the body of POST /api/sessions/create
type CreateSessionRequest struct {
	Role          string           `json:"role" binding:"required"`
	Experience    string           `json:"experience" binding:"required"`
	TopicsToFocus string           `json:"topicsToFocus" binding:"required"`
	Description   string           `json:"description"`
	Questions     []QuestionAnswer `json:"questions"`
}

// AddQuestionsRequest is the body of POST /api/questions/add
type AddQuestionsRequest struct {
	SessionID string           `json:"sessionId" binding:"required"`
	Questions []QuestionAnswer `json:"questions" binding:"required,min=1"`
}

// UpdateNoteRequest is the body of POST /api/questions/:id/note
type UpdateNoteRequest struct {
	Note string `json:"note"`
}
