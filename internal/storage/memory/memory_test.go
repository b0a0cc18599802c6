package memory

import (
	"context"
	"errors"
	"testing"
)

func TestStoreGetSet(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	buf := []byte(`[1,2]`)
	if err := s.Set(ctx, "k", buf); err != nil {
		t.Fatalf("set: %v", err)
	}
	buf[0] = 'x'

	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(got) != `[1,2]` {
		t.Fatalf("unexpected value %q ok=%v err=%v", got, ok, err)
	}
	if s.Keys() != 1 {
		t.Fatalf("expected 1 key, got %d", s.Keys())
	}
}

func TestStoreFailWrites(t *testing.T) {
	s := New()
	s.Seed("k", []byte("old"))
	boom := errors.New("disk full")
	s.FailWrites = boom

	if err := s.Set(context.Background(), "k", []byte("new")); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	got, _, _ := s.Get(context.Background(), "k")
	if string(got) != "old" {
		t.Fatalf("failed write must not change value, got %q", got)
	}
}
