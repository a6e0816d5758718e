package twofa

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig contains configuration for creating a 2FA repository.
type RepositoryConfig struct {
	// Pool is required for PostgreSQL repositories.
	Pool *pgxpool.Pool
}

// NewTwoFARepository creates a new 2FA repository based on the persistence type.
func NewTwoFARepository(persistenceType string, config RepositoryConfig) (TwoFARepository, error) {
	switch persistenceType {
	case "postgres", "postgresql":
		if config.Pool == nil {
			return nil, fmt.Errorf("pool required for postgres repository")
		}
		return NewPostgresTwoFARepository(config.Pool), nil
	case "memory":
		return NewInMemoryTwoFARepository(), nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, memory)", persistenceType)
	}
}
