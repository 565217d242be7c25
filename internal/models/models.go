// Package models defines data structures used throughout the interview-prep backend.
package models

import (
	"time"
)

// User represents a registered user
type User struct {
	ID              string    `json:"id" yaml:"id"`
	Name            string    `json:"name" yaml:"name"`
	Email           string    `json:"email" yaml:"email"`
	PasswordHash    string    `json:"-" yaml:"-"` // Omit from JSON responses
	ProfileImageURL string    `json:"profileImageUrl,omitempty" yaml:"profile_image_url,omitempty"`
	Role            string    `json:"role,omitempty" yaml:"role,omitempty"`
	CreatedAt       time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" yaml:"updated_at"`
}

// RegisterRequest is the body of POST /api/auth/register
type RegisterRequest struct {
	Name            string `json:"name" binding:"required" validate:"required,max=100"`
	Email           string `json:"email" binding:"required" validate:"required,email"`
	Password        string `json:"password" binding:"required" validate:"required,min=8,max=72"`
	ProfileImageURL string `json:"profileImageUrl" validate:"omitempty,url"`
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
