package database

import (
	"github.com/itqanpos/ITQN/internal/logger"
	"github.com/itqanpos/ITQN/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, in migration order.
func Models() []interface{} {
	return []interface{}{
		&model.Tenant{},
		&model.User{},
		&model.SequenceCounter{},
		&model.Product{},
		&model.InventoryLog{},
		&model.Order{},
		&model.OrderItem{},
		&model.Sale{},
		&model.TreasuryAccount{},
		&model.TreasuryMovement{},
		&model.DailyTreasury{},
		&model.Commission{},
		&model.AuditLog{},
		&model.OutboxEvent{},
	}
}

// GormConfig enables driver error translation so unique violations surface
// as gorm.ErrDuplicatedKey on every dialect.
func GormConfig() *gorm.Config {
	return &gorm.Config{TranslateError: true}
}

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string, log *logger.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), GormConfig())
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		log.Warnw("failed to auto-migrate models", "error", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
