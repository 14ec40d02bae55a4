package tasks

import (
	"context"
	"fmt"
	"strings"
)

// Open returns the store for driver with its schema applied, plus a close
// func for the underlying connection.
func Open(ctx context.Context, driver, dsn string) (Store, func() error, error) {
	switch strings.ToLower(driver) {
	case "memory":
		return NewInMemoryStore(), func() error { return nil }, nil

	case "sqlite":
		if !strings.HasPrefix(dsn, "file:") {
			var err error
			if dsn, err = SQLiteFileDSN(dsn); err != nil {
				return nil, nil, fmt.Errorf("sqlite dsn: %w", err)
			}
		}
		s, err := NewSQLiteStore(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := s.ApplyMigrations(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return s, s.Close, nil

	case "postgres":
		s, err := NewPostgresStore(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := s.ApplyMigrations(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return s, s.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
