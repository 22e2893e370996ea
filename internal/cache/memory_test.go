package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemory_GetSetDelete(t *testing.T) {
	t.Parallel()
	m, err := NewMemory(100, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	// Get non-existent.
	if _, ok, err := m.Get(ctx, "missing"); ok || err != nil {
		t.Errorf("missing key: ok=%v err=%v, want miss", ok, err)
	}

	if err := m.Set(ctx, "cep:01310100", []byte(`{"uf":"SP"}`), time.Minute); err != nil {
		t.Fatal(err)
	}
	// otter may apply writes asynchronously; wait briefly.
	time.Sleep(50 * time.Millisecond)

	val, ok, err := m.Get(ctx, "cep:01310100")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v, want hit", ok, err)
	}
	if string(val) != `{"uf":"SP"}` {
		t.Errorf("value = %q", val)
	}

	if err := m.Delete(ctx, "cep:01310100"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := m.Get(ctx, "cep:01310100"); ok {
		t.Error("should not find deleted key")
	}
}

func TestMemory_ValueIsCopied(t *testing.T) {
	t.Parallel()
	m, err := NewMemory(100, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	buf := []byte("original")
	m.Set(ctx, "k", buf, time.Minute)
	time.Sleep(50 * time.Millisecond)
	buf[0] = 'X'

	got, ok, _ := m.Get(ctx, "k")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(got) != "original" {
		t.Errorf("stored value aliased caller buffer: %q", got)
	}
	got[0] = 'Y'
	again, _, _ := m.Get(ctx, "k")
	if string(again) != "original" {
		t.Errorf("returned value aliased cache entry: %q", again)
	}
}

func TestMemory_TTLExpiry(t *testing.T) {
	t.Parallel()
	m, err := NewMemory(100, time.Hour) // long cap
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	m.Set(ctx, "expiring", []byte("data"), 50*time.Millisecond)
	time.Sleep(120 * time.Millisecond)

	if _, ok, _ := m.Get(ctx, "expiring"); ok {
		t.Error("entry should be expired")
	}
}

func TestMemory_Purge(t *testing.T) {
	t.Parallel()
	m, err := NewMemory(100, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	m.Set(ctx, "a", []byte("1"), time.Minute)
	m.Set(ctx, "b", []byte("2"), time.Minute)
	time.Sleep(50 * time.Millisecond)

	if err := m.Purge(ctx); err != nil {
		t.Fatal(err)
	}

	for _, k := range []string{"a", "b"} {
		if _, ok, _ := m.Get(ctx, k); ok {
			t.Errorf("purge should remove %q", k)
		}
	}
}
