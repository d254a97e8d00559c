package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/trainerscope/pkg/metrics"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Store drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open creates the Store for driver. dsn is ignored by the memory driver.
func Open(ctx context.Context, driver, dsn string, opts ...GormOption) (Store, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverSQLite:
		return openGorm(ctx, sqlite.Open(dsn), opts...)
	case DriverPostgres:
		return openGorm(ctx, postgres.Open(dsn), opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

func openGorm(ctx context.Context, dialector gorm.Dialector, opts ...GormOption) (Store, error) {
	s, err := NewGormStore(ctx, dialector, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// observe starts timing op; call the result when op completes.
func observe(op string) func() {
	start := time.Now()
	return func() {
		metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
	}
}
