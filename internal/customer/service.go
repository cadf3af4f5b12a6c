package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

type Service interface {
	Register(ctx context.Context, name, email string, phone *string) (*Customer, error)
	GetByID(ctx context.Context, id int64) (*Customer, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Register stores a new customer. Emails are compared case-insensitively.
func (s *service) Register(ctx context.Context, name, email string, phone *string) (*Customer, error) {
	c := &Customer{
		Name:  strings.TrimSpace(name),
		Email: strings.ToLower(strings.TrimSpace(email)),
	}
	if c.Name == "" || c.Email == "" {
		return nil, errors.New("service: customer name and email are required")
	}
	if phone != nil {
		if p := strings.TrimSpace(*phone); p != "" {
			c.Phone = &p
		}
	}

	if _, err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		log.Error().Err(err).Msg("service: failed to create customer in repository")
		return nil, fmt.Errorf("service: failed to save customer: %w", err)
	}

	log.Info().Int64("customer_id", c.ID).Msg("service: customer registered")
	return c, nil
}

func (s *service) GetByID(ctx context.Context, id int64) (*Customer, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Int64("customer_id", id).Msg("service: failed to get customer by id")
		return nil, fmt.Errorf("service: failed to get customer by id %d: %w", id, err)
	}
	return c, nil
}
