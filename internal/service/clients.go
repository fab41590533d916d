package service

import (
	"context"

	"github.com/hourstack/hourstack/internal/domain/client"
	"github.com/hourstack/hourstack/internal/port/database"
)

// ClientService exposes read access to client records.
type ClientService struct {
	store database.Store
}

// NewClientService creates a ClientService.
func NewClientService(store database.Store) *ClientService {
	return &ClientService{store: store}
}

// List returns all clients.
func (s *ClientService) List(ctx context.Context) ([]client.Client, error) {
	return s.store.ListClients(ctx)
}

// Get returns one client by ID.
func (s *ClientService) Get(ctx context.Context, id string) (*client.Client, error) {
	return s.store.GetClient(ctx, id)
}
