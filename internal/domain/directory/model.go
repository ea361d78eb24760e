package directory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Institution maps to the institution table.
type Institution struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name" validate:"required,max=255"`
	Code      string    `json:"code,omitempty" validate:"max=32"`
	Timezone  string    `json:"timezone,omitempty" validate:"max=64"`
	CreatedAt time.Time `json:"created_at"`
}

// Patient maps to the patient table. PUID is the unique patient identifier.
type Patient struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name" validate:"required,max=255"`
	PUID             string     `json:"puid,omitempty" validate:"max=64"`
	MedicalRecordNum string     `json:"medical_record_num,omitempty" validate:"max=64"`
	Sex              string     `json:"sex,omitempty" validate:"max=16"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// SexDisplay upper-cases single letter codes and leaves words alone.
func (p *Patient) SexDisplay() string {
	switch {
	case p.Sex == "":
		return "?"
	case len(p.Sex) == 1:
		return strings.ToUpper(p.Sex)
	default:
		return p.Sex
	}
}

// Age renders the age at now as "34y 2m 5d", or empty without a birth date.
func (p *Patient) Age(now time.Time) string {
	if p.DateOfBirth == nil {
		return ""
	}
	dob := *p.DateOfBirth
	if now.Before(dob) {
		return ""
	}
	years := now.Year() - dob.Year()
	months := int(now.Month()) - int(dob.Month())
	days := now.Day() - dob.Day()
	if days < 0 {
		months--
		// days in the month preceding now
		days += time.Date(now.Year(), now.Month(), 0, 0, 0, 0, 0, now.Location()).Day()
	}
	if months < 0 {
		years--
		months += 12
	}
	return fmt.Sprintf("%dy %dm %dd", years, months, days)
}

// Professional maps to health_professional. UserID ties it to the bearer
// token subject.
type Professional struct {
	ID            uuid.UUID  `json:"id"`
	UserID        string     `json:"user_id" validate:"required,max=255"`
	Name          string     `json:"name" validate:"required,max=255"`
	InstitutionID *uuid.UUID `json:"institution_id,omitempty"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
}
