package component

import (
	"time"

	"github.com/google/uuid"
)

// UnionRow is one row of the encounter_component view: the shared columns of
// any kind plus its discriminator.
type UnionRow struct {
	ComponentType   Kind       `json:"component_type"`
	TypeLabel       string     `json:"type_label"`
	ID              uuid.UUID  `json:"id"`
	EncounterID     uuid.UUID  `json:"encounter_id"`
	Active          bool       `json:"active"`
	StartTime       time.Time  `json:"start_time"`
	StartTimeTime   string     `json:"start_time_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	SignTime        *time.Time `json:"sign_time,omitempty"`
	SignedBy        *uuid.UUID `json:"signed_by,omitempty"`
	SignedByName    string     `json:"signed_by_name,omitempty"`
	PerformedBy     *uuid.UUID `json:"performed_by,omitempty"`
	PerformedByName string     `json:"performed_by_name,omitempty"`
	Warning         bool       `json:"warning"`
	CriticalInfo    string     `json:"critical_info"`
	Byline          string     `json:"byline"`
	Signed          bool       `json:"signed"`
	IsUnion         bool       `json:"is_union"`
}

// base projects the row onto Base so byline rendering is shared.
func (u *UnionRow) base() *Base {
	return &Base{
		ID:              u.ID,
		EncounterID:     u.EncounterID,
		Active:          u.Active,
		StartTime:       u.StartTime,
		EndTime:         u.EndTime,
		SignTime:        u.SignTime,
		SignedBy:        u.SignedBy,
		SignedByName:    u.SignedByName,
		PerformedBy:     u.PerformedBy,
		PerformedByName: u.PerformedByName,
		Warning:         u.Warning,
		CriticalInfo:    u.CriticalInfo,
	}
}

// decorate fills the display columns for loc and the registry label.
func (u *UnionRow) decorate(loc *time.Location, label string) {
	if loc == nil {
		loc = time.UTC
	}
	u.TypeLabel = label
	if u.TypeLabel == "" {
		u.TypeLabel = string(u.ComponentType)
	}
	u.StartTimeTime = u.StartTime.In(loc).Format("15:04")
	u.Byline = u.base().Byline(loc)
	u.Signed = u.SignedBy != nil
	u.IsUnion = true
}
