package cache

import (
	"context"
	"testing"
	"time"
)

type item struct {
	Name string `json:"name"`
}

func TestMemoryCache_SetGetDelete(t *testing.T) {
	c := NewMemoryCache[[]item](0)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expected miss on empty cache")
	}

	v := []item{{Name: "a"}, {Name: "b"}}
	c.Set(ctx, "k", &v)

	got, ok := c.Get(ctx, "k")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(*got) != 2 || (*got)[1].Name != "b" {
		t.Errorf("unexpected value %v", *got)
	}

	// stored copies are independent of the caller's slice
	v[0].Name = "changed"
	got, _ = c.Get(ctx, "k")
	if (*got)[0].Name != "a" {
		t.Errorf("expected stored copy to be unchanged, got %q", (*got)[0].Name)
	}

	c.Delete(ctx, "k")
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("expected miss after delete")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache[item](time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Set(ctx, "k", &item{Name: "x"})
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("expected miss after expiry")
	}
}
