// Package keys lists and provisions the keys agents are created with.
package keys

import (
	"context"

	"github.com/valory-xyz/propel-client-go/internal/client"
	"github.com/valory-xyz/propel-client-go/internal/models"
)

type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body any, out any) error
}

type Service struct {
	api API
}

func NewService(api API) *Service {
	return &Service{api: api}
}

func (s *Service) List(ctx context.Context) ([]models.Key, error) {
	var keys []models.Key
	if err := s.api.Get(ctx, client.KeysEndpoint, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// Create provisions a new key. The request has no body.
func (s *Service) Create(ctx context.Context) (*models.Key, error) {
	var key models.Key
	if err := s.api.Post(ctx, client.KeysEndpoint+"/", nil, &key); err != nil {
		return nil, err
	}
	return &key, nil
}
