package backend

import (
	"fmt"

	"transferdash/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	eventsType := EventsType(appConfig.EventsBackend)
	if eventsType == "" {
		eventsType = NoEvents
	}
	if !eventsType.IsValid() {
		return Config{}, fmt.Errorf("invalid events type in config: %s", appConfig.EventsBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath:    appConfig.SQLiteDBPath,
		MongoURI:        appConfig.MongoURI,
		MongoDB:         appConfig.MongoDB,
		MongoCollection: appConfig.MongoCollection,
		PostgresDSN:     appConfig.PostgresDSN,

		Events:       eventsType,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
		NATSURL:      appConfig.NATSURL,
		NATSSubject:  appConfig.NATSSubject,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case MongoBackend:
		if c.MongoURI == "" || c.MongoDB == "" || c.MongoCollection == "" {
			return fmt.Errorf("MongoDB URI, database and collection are required for mongo backend")
		}
	case PostgresBackend:
		if c.PostgresDSN == "" {
			return fmt.Errorf("Postgres DSN is required for postgres backend")
		}
	case MemoryBackend:
		// nothing to check
	}

	switch c.Events {
	case AMQPEvents:
		if c.AMQPURL == "" || c.AMQPExchange == "" || c.AMQPQueue == "" {
			return fmt.Errorf("AMQP URL, exchange and queue are required for amqp events")
		}
	case NATSEvents:
		if c.NATSURL == "" || c.NATSSubject == "" {
			return fmt.Errorf("NATS URL and subject are required for nats events")
		}
	case NoEvents, "":
	default:
		return fmt.Errorf("invalid events type: %s", c.Events)
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, MongoBackend, PostgresBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
