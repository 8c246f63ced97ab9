package store

import (
	"fmt"

	"gorm.io/gorm"
)

// Driver identifiers supported by the session domain.
const (
	DriverMemory = "memory"
	DriverGorm   = "gorm"
	DriverRedis  = "redis"
)

// Dependencies captures external handles required by certain drivers.
type Dependencies struct {
	GormDB *gorm.DB
}

// New creates a session store based on the provided configuration.
func New(cfg Config, deps Dependencies) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverGorm
	}

	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverGorm:
		if deps.GormDB == nil {
			return nil, fmt.Errorf("gorm driver requires database handle")
		}
		return NewGorm(deps.GormDB)
	case DriverRedis:
		return NewRedis(cfg)
	default:
		return nil, fmt.Errorf("unsupported session store driver: %s", driver)
	}
}
