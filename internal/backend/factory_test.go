package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"transferdash/internal/config"
	"transferdash/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	_, err := FromAppConfig(&config.Config{DataBackend: "sheets"})
	if err == nil || !strings.Contains(err.Error(), "invalid backend type") {
		t.Fatalf("expected invalid backend error, got %v", err)
	}

	cfg, err := FromAppConfig(&config.Config{DataBackend: "mongo", MongoURI: "mongodb://x", MongoDB: "d", MongoCollection: "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Type != MongoBackend || cfg.Events != NoEvents {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without dsn", Config{Type: PostgresBackend}, true},
		{"mongo missing collection", Config{Type: MongoBackend, MongoURI: "mongodb://x", MongoDB: "d"}, true},
		{"amqp without queue", Config{Type: MemoryBackend, Events: AMQPEvents, AMQPURL: "amqp://x", AMQPExchange: "e"}, true},
		{"nats complete", Config{Type: MemoryBackend, Events: NATSEvents, NATSURL: "nats://x", NATSSubject: "s"}, false},
		{"unknown events", Config{Type: MemoryBackend, Events: "kafka"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateStoreMemory(t *testing.T) {
	res, err := NewFactory(nil).CreateStore(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Cleanup != nil {
		t.Fatalf("memory store needs no cleanup")
	}
	ctx := context.Background()
	if err := res.Store.Set(ctx, storage.KeyTransfers, []byte("[]")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := res.Store.Get(ctx, storage.KeyTransfers); !ok {
		t.Fatalf("expected stored key")
	}
	if err := res.Store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestCreateStoreSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dash.db")
	res, err := NewFactory(nil).CreateStore(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer res.Cleanup()
	if err := res.Store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestCreateBusDisabled(t *testing.T) {
	bus, err := NewFactory(nil).CreateBus(context.Background(), Config{Type: MemoryBackend, Events: NoEvents})
	if err != nil || bus != nil {
		t.Fatalf("expected no bus, got %v %v", bus, err)
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := strings.Join(GetBackendTypeStrings(), ",")
	if got != "memory,sqlite,mongo,postgres" {
		t.Fatalf("unexpected types: %s", got)
	}
}
