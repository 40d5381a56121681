package services

import "taskflow-backend/internal/models"

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

// RateLimitError is the daily summary quota refusal. It carries the reset
// time so clients know when the quota comes back.
type RateLimitError struct {
	Message   string
	RateLimit models.RateLimitStatus
}

func (e *RateLimitError) Error() string { return e.Message }

// GenerationError covers every failure between the completion call and
// persistence: provider errors, empty output, unparseable or structurally
// invalid JSON. Never retried automatically.
type GenerationError struct{ Message string }

func (e *GenerationError) Error() string { return e.Message }
