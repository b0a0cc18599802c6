package backend

import (
	"context"
	"fmt"
	"time"

	"transferdash/internal/amqp"
	"transferdash/internal/log"
	"transferdash/internal/natsbus"
	"transferdash/internal/storage"
	"transferdash/internal/storage/memory"
	"transferdash/internal/storage/mongo"
	"transferdash/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	return &DefaultFactory{
		logger: log.OrDiscard(logger).WithComponent(log.ComponentBackend),
	}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*StoreResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteStore(config)
	case MongoBackend:
		return f.createMongoStore(ctx, config)
	case PostgresBackend:
		return f.createPostgresStore(ctx, config)
	case MemoryBackend:
		return f.createMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteStore(config Config) (*StoreResult, error) {
	s, err := storage.NewSQLiteStore(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &StoreResult{Store: s, Cleanup: s.Close}, nil
}

func (f *DefaultFactory) createMongoStore(ctx context.Context, config Config) (*StoreResult, error) {
	s, err := mongo.New(ctx, config.MongoURI, config.MongoDB, config.MongoCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB store: %w", err)
	}
	f.logger.Info("Initialized MongoDB backend", "database", config.MongoDB, "collection", config.MongoCollection)
	return &StoreResult{
		Store: s,
		Cleanup: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return s.Close(ctx)
		},
	}, nil
}

func (f *DefaultFactory) createPostgresStore(ctx context.Context, config Config) (*StoreResult, error) {
	s, err := postgres.New(ctx, config.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
	}
	f.logger.Info("Initialized Postgres backend")
	return &StoreResult{Store: s, Cleanup: s.Close}, nil
}

func (f *DefaultFactory) createMemoryStore() (*StoreResult, error) {
	f.logger.Info("Initialized memory backend")
	return &StoreResult{Store: memory.New()}, nil
}

// CreateBus implements Factory.CreateBus
func (f *DefaultFactory) CreateBus(ctx context.Context, config Config) (Bus, error) {
	switch config.Events {
	case NoEvents, "":
		return nil, nil
	case AMQPEvents:
		c, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized AMQP client",
			"exchange", config.AMQPExchange,
			"queue", config.AMQPQueue)
		return c, nil
	case NATSEvents:
		b, err := natsbus.Connect(config.NATSURL, config.NATSSubject)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize NATS bus: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized NATS bus", "subject", config.NATSSubject)
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported events type: %s", config.Events)
	}
}
