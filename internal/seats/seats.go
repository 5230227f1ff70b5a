// Package seats reports agent capacity on the account.
package seats

import (
	"context"
	"errors"
	"fmt"

	"github.com/valory-xyz/propel-client-go/internal/client"
	"github.com/valory-xyz/propel-client-go/internal/models"
)

// ErrNoSeats is returned by Ensure when no further agent can be created.
var ErrNoSeats = errors.New("no seats available")

type API interface {
	Get(ctx context.Context, path string, out any) error
}

type Service struct {
	api API
}

func NewService(api API) *Service {
	return &Service{api: api}
}

func (s *Service) Get(ctx context.Context) (*models.Seats, error) {
	var seats models.Seats
	if err := s.api.Get(ctx, client.SeatsEndpoint, &seats); err != nil {
		return nil, err
	}
	return &seats, nil
}

// Ensure fails with ErrNoSeats unless at least one seat is free.
func (s *Service) Ensure(ctx context.Context) (*models.Seats, error) {
	seats, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	if seats.NAvailable < 1 {
		return seats, fmt.Errorf("%w: %d of %d in use", ErrNoSeats, seats.NUsed, seats.NTotal)
	}

	return seats, nil
}
