package domain

import (
	"context"
	"errors"
)

type CreateClientRequest struct {
	Name    string
	Email   string
	Phone   string
	Address string
	TaxID   string
}

type UpdateClientRequest struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
	TaxID   *string
}

type Service interface {
	Create(context.Context, CreateClientRequest) (Client, error)
	List(context.Context) ([]Client, error)
	GetByID(ctx context.Context, id string) (Client, error)
	Update(ctx context.Context, id string, req UpdateClientRequest) (Client, error)
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidID    = errors.New("invalid_id")
	ErrNotFound     = errors.New("client_not_found")
)
