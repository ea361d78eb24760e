package tz

import (
	"testing"
	"time"
)

func TestResolver_InstitutionWins(t *testing.T) {
	r := NewResolver("America/Jamaica")
	loc, err := r.Resolve("Europe/Berlin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.String() != "Europe/Berlin" {
		t.Errorf("expected Europe/Berlin, got %s", loc)
	}
}

func TestResolver_Fallback(t *testing.T) {
	r := NewResolver("America/Jamaica")
	loc, err := r.Resolve("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.String() != "America/Jamaica" {
		t.Errorf("expected America/Jamaica, got %s", loc)
	}
}

func TestResolver_HostZone(t *testing.T) {
	loc, err := NewResolver("").Resolve("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc != time.Local {
		t.Errorf("expected host zone, got %s", loc)
	}
}

func TestResolver_Unknown(t *testing.T) {
	r := NewResolver("")
	if _, err := r.Resolve("Nowhere/Atlantis"); err == nil {
		t.Error("expected error for unknown zone")
	}
	if loc := r.MustResolve("Nowhere/Atlantis"); loc != time.UTC {
		t.Errorf("expected UTC fallback, got %s", loc)
	}
}

func TestResolver_Caches(t *testing.T) {
	r := NewResolver("")
	a, _ := r.Resolve("Asia/Tokyo")
	b, _ := r.Resolve("Asia/Tokyo")
	if a != b {
		t.Error("expected the same *time.Location from the cache")
	}
}

func TestLocaltime(t *testing.T) {
	loc, _ := time.LoadLocation("America/Jamaica")
	utc := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)
	got := Localtime(utc, loc)
	if got.Hour() != 10 || got.Minute() != 30 {
		t.Errorf("expected 10:30 local, got %s", got.Format("15:04"))
	}
	if !got.Equal(utc) {
		t.Error("conversion must keep the same instant")
	}
}

func TestCtime(t *testing.T) {
	got := Ctime(time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC))
	if got != "Fri Mar  1 09:05:07 2024" {
		t.Errorf("unexpected ctime %q", got)
	}
}
