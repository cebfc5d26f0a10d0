package domain

import (
	"context"
	"errors"
)

type CreateStaffRequest struct {
	Name  string
	Email string
	Role  string
}

type Service interface {
	Create(context.Context, CreateStaffRequest) (Staff, error)
	List(context.Context) ([]Staff, error)
	GetByID(ctx context.Context, id string) (Staff, error)
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidRole  = errors.New("invalid_role")
	ErrInvalidID    = errors.New("invalid_id")
	ErrEmailExists  = errors.New("staff_email_exists")
	ErrNotFound     = errors.New("staff_not_found")
)
