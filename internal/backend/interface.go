package backend

import (
	"context"

	"transferdash/internal/events"
	"transferdash/internal/storage"
)

// Store is a key-value backend the readiness probe can check.
type Store interface {
	storage.KeyValueStore
	Ping(ctx context.Context) error
}

// Bus publishes and consumes transfer events.
type Bus interface {
	events.Publisher
	events.Consumer
	Ping(ctx context.Context) error
	Close() error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// StoreResult contains the store instance and optional cleanup function
type StoreResult struct {
	Store   Store
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateStore opens the key-value store selected by config.
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)
	// CreateBus connects to the event broker; it returns nil when events are
	// disabled.
	CreateBus(ctx context.Context, config Config) (Bus, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// MongoDB specific
	MongoURI        string
	MongoDB         string
	MongoCollection string

	// Postgres specific
	PostgresDSN string

	// Events
	Events       EventsType
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	NATSURL      string
	NATSSubject  string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	MongoBackend    BackendType = "mongo"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MongoBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// EventsType selects the broker transfer events travel through.
type EventsType string

const (
	NoEvents   EventsType = "none"
	AMQPEvents EventsType = "amqp"
	NATSEvents EventsType = "nats"
)

func (et EventsType) IsValid() bool {
	switch et {
	case NoEvents, AMQPEvents, NATSEvents:
		return true
	default:
		return false
	}
}
