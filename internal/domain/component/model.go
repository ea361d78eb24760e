package component

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies a component table. It is the model name stored in the
// component type registry and the discriminator of the union view.
type Kind string

const (
	KindAnthropometry Kind = "anthropometry"
	KindAmbulatory    Kind = "ambulatory"
	KindMentalStatus  Kind = "mental_status"
	KindClinical      Kind = "clinical"
	KindProcedures    Kind = "procedures"
)

// Kinds lists every supported kind in display order.
var Kinds = []Kind{KindAnthropometry, KindAmbulatory, KindMentalStatus, KindClinical, KindProcedures}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Base holds the columns every component table shares.
type Base struct {
	ID              uuid.UUID  `json:"id"`
	EncounterID     uuid.UUID  `json:"encounter_id"`
	Active          bool       `json:"active"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	SignTime        *time.Time `json:"sign_time,omitempty"`
	SignedBy        *uuid.UUID `json:"signed_by,omitempty"`
	SignedByName    string     `json:"signed_by_name,omitempty"`
	PerformedBy     *uuid.UUID `json:"performed_by,omitempty"`
	PerformedByName string     `json:"performed_by_name,omitempty"`
	Warning         bool       `json:"warning"`
	Notes           string     `json:"notes,omitempty"`
	CriticalInfo    string     `json:"critical_info"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Header gives shared access to the base columns of any kind.
func (b *Base) Header() *Base { return b }

// Signed reports whether the component is signed and therefore read-only.
func (b *Base) Signed() bool { return b.SignedBy != nil }

// Byline renders "on <start> by <clinician>", noting the signer when it is
// someone else.
func (b *Base) Byline(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	name := b.PerformedByName
	if b.PerformedBy == nil || name == "" {
		name = "-Unspecified-"
	}
	if b.SignedBy != nil && (b.PerformedBy == nil || *b.SignedBy != *b.PerformedBy) {
		name = fmt.Sprintf("%s (signed by %s)", name, b.SignedByName)
	}
	return fmt.Sprintf("on %s by %s", b.StartTime.In(loc).Format("2006-01-02 15:04"), name)
}

// Component is implemented by every kind.
type Component interface {
	Header() *Base
	Kind() Kind
	// Compute refreshes derived measurements before validation.
	Compute()
	// MakeCriticalInfo returns the one-line summary stored on save.
	MakeCriticalInfo() string
	// ReportInfo returns the multi-line plain text report.
	ReportInfo() string
}

// checker is implemented by kinds with rules struct tags cannot express.
type checker interface {
	Check() error
}

// New returns an empty component of kind with its defaults applied.
func New(kind Kind) (Component, error) {
	switch kind {
	case KindAnthropometry:
		return &Anthropometry{Base: Base{Active: true}}, nil
	case KindAmbulatory:
		return &Ambulatory{Base: Base{Active: true}}, nil
	case KindMentalStatus:
		return &MentalStatus{
			Base:      Base{Active: true},
			Loc:       15,
			LocEyes:   4,
			LocVerbal: 5,
			LocMotor:  6,
		}, nil
	case KindClinical:
		return &Clinical{Base: Base{Active: true}}, nil
	case KindProcedures:
		return &Procedures{Base: Base{Active: true}}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// textReport collects report lines; each line is its parts joined by a space.
type textReport struct {
	lines []string
}

func (r *textReport) add(parts ...string) {
	r.lines = append(r.lines, strings.Join(parts, " "))
}

func (r *textReport) notes(notes string) {
	if strings.TrimSpace(notes) == "" {
		return
	}
	r.add("\n=== Notes ===")
	r.add(notes)
}

func (r *textReport) join(sep string) string {
	return strings.Join(r.lines, sep)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
