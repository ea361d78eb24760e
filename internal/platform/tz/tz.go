package tz

import (
	"fmt"
	"sync"
	"time"
	_ "time/tzdata"
)

// Resolver picks the facility timezone: the institution's zone when set,
// then the configured default, then the host zone.
type Resolver struct {
	fallback string

	mu    sync.RWMutex
	zones map[string]*time.Location
}

func NewResolver(fallback string) *Resolver {
	return &Resolver{fallback: fallback, zones: make(map[string]*time.Location)}
}

// Resolve returns the location for an institution timezone name, which may be empty.
func (r *Resolver) Resolve(institutionTZ string) (*time.Location, error) {
	name := institutionTZ
	if name == "" {
		name = r.fallback
	}
	if name == "" {
		return time.Local, nil
	}
	return r.load(name)
}

// MustResolve is Resolve with a UTC fallback for display paths.
func (r *Resolver) MustResolve(institutionTZ string) *time.Location {
	loc, err := r.Resolve(institutionTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (r *Resolver) load(name string) (*time.Location, error) {
	r.mu.RLock()
	loc, ok := r.zones[name]
	r.mu.RUnlock()
	if ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	r.mu.Lock()
	r.zones[name] = loc
	r.mu.Unlock()
	return loc, nil
}

// Localtime converts t to loc. Times without a zone are read as UTC.
func Localtime(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if t.Location() == time.Local && time.Local != time.UTC {
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	}
	return t.In(loc)
}

// Ctime formats t like C's ctime: "Mon Jan  2 15:04:05 2006".
func Ctime(t time.Time) string {
	return t.Format("Mon Jan _2 15:04:05 2006")
}
