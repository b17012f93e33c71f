package service

import (
	"context"

	"github.com/itqanpos/ITQN/internal/clock"
	ierr "github.com/itqanpos/ITQN/internal/errors"
	"github.com/itqanpos/ITQN/internal/repository"

	"github.com/google/uuid"
)

// SequenceService mints gap-free, year-scoped document numbers per tenant.
type SequenceService interface {
	// Allocate advances the (tenant, domain) counter by one inside the
	// caller's transaction and returns the formatted number. Each call in
	// the same transaction yields the next number.
	Allocate(ctx context.Context, tenantID uuid.UUID, domain string) (string, error)
}

type sequenceService struct {
	sequenceRepo repository.SequenceRepository
	clock        clock.Clock
}

func NewSequenceService(sequenceRepo repository.SequenceRepository, clk clock.Clock) SequenceService {
	return &sequenceService{sequenceRepo: sequenceRepo, clock: clk}
}

func (s *sequenceService) Allocate(ctx context.Context, tenantID uuid.UUID, domain string) (string, error) {
	if tenantID == uuid.Nil {
		return "", ierr.NewError("missing tenant").
			WithHint("tenant is required").
			Mark(ierr.ErrInvalidArgument)
	}
	if domain == "" {
		return "", ierr.NewError("missing sequence domain").
			WithHint("sequence domain is required").
			Mark(ierr.ErrInvalidArgument)
	}

	counter, err := s.sequenceRepo.FindForUpdate(ctx, tenantID, domain)
	if err != nil {
		return "", err
	}

	counter.Advance(s.clock.Now().Year())
	if err := s.sequenceRepo.Save(ctx, counter); err != nil {
		return "", err
	}

	return counter.Formatted(), nil
}
