package secevent

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig contains configuration for creating an event repository.
type RepositoryConfig struct {
	// Pool is required for PostgreSQL repositories.
	Pool *pgxpool.Pool
}

// NewEventRepository creates a new event repository based on the persistence type.
func NewEventRepository(persistenceType string, config RepositoryConfig) (EventRepository, error) {
	switch persistenceType {
	case "postgres", "postgresql":
		if config.Pool == nil {
			return nil, fmt.Errorf("pool required for postgres repository")
		}
		return NewPostgresEventRepository(config.Pool), nil
	case "memory":
		return NewInMemoryEventRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, memory)", persistenceType)
	}
}
