package repository

import (
	"context"

	"github.com/itqanpos/ITQN/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SequenceRepository interface {
	Create(ctx context.Context, counter *model.SequenceCounter) error
	// FindForUpdate reads the counter row, locking it where the dialect supports row locks.
	FindForUpdate(ctx context.Context, tenantID uuid.UUID, domain string) (*model.SequenceCounter, error)
	// Save writes year/last_number iff the stored version still matches,
	// then bumps counter.Version. A stale version yields a Conflict error.
	Save(ctx context.Context, counter *model.SequenceCounter) error
}

type sequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

func (r *sequenceRepository) Create(ctx context.Context, counter *model.SequenceCounter) error {
	return translate(GetDB(ctx, r.db).Create(counter).Error, "sequence counter")
}

func (r *sequenceRepository) FindForUpdate(ctx context.Context, tenantID uuid.UUID, domain string) (*model.SequenceCounter, error) {
	var counter model.SequenceCounter
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND domain = ?", tenantID, domain).
		First(&counter).Error; err != nil {
		return nil, translate(err, "sequence counter")
	}
	return &counter, nil
}

func (r *sequenceRepository) Save(ctx context.Context, counter *model.SequenceCounter) error {
	res := GetDB(ctx, r.db).Model(&model.SequenceCounter{}).
		Where("id = ? AND version = ?", counter.ID, counter.Version).
		Updates(map[string]interface{}{
			"year":        counter.Year,
			"last_number": counter.LastNumber,
			"version":     counter.Version + 1,
		})
	if res.Error != nil {
		return translate(res.Error, "sequence counter")
	}
	if res.RowsAffected == 0 {
		return staleWrite("sequence counter")
	}
	counter.Version++
	return nil
}
