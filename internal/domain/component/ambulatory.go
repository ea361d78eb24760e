package component

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ehr/encounter/internal/platform/validate"
)

// Urine dipstick readings.
var (
	UrineLevels   = []string{"normal", "trace", "+", "++", "+++", "++++"}
	NitriteLevels = []string{"normal", "trace", "small", "moderate", "large", "large+"}
)

var DehydrationLevels = []string{"none", "mild", "moderate", "severe"}

var (
	phMin = decimal.NewFromInt(0)
	phMax = decimal.NewFromInt(14)
	sgMin = decimal.RequireFromString("1.000")
	sgMax = decimal.RequireFromString("1.100")
)

// Ambulatory records vital signs and point of care tests.
type Ambulatory struct {
	Base
	Systolic        *int       `json:"systolic,omitempty" validate:"omitempty,gte=0,lte=300"`
	Diastolic       *int       `json:"diastolic,omitempty" validate:"omitempty,gte=0,lte=250"`
	BPM             *int       `json:"bpm,omitempty" validate:"omitempty,gte=0,lte=350"`
	RespiratoryRate *int       `json:"respiratory_rate,omitempty" validate:"omitempty,gte=0,lte=150"`
	Osat            *int       `json:"osat,omitempty" validate:"omitempty,gte=0,lte=100"`
	Temperature     *float64   `json:"temperature,omitempty" validate:"omitempty,gte=20,lte=46"`
	Pregnant        bool       `json:"pregnant"`
	LMP             *time.Time `json:"lmp,omitempty"`
	Glucose         *float64   `json:"glucose,omitempty" validate:"omitempty,gte=0,lte=100"`

	UriPH              decimal.NullDecimal `json:"uri_ph"`
	UriSpecificGravity decimal.NullDecimal `json:"uri_specific_gravity"`
	UriProtein         string              `json:"uri_protein,omitempty" validate:"omitempty,oneof=normal trace + ++ +++ ++++"`
	UriBlood           string              `json:"uri_blood,omitempty" validate:"omitempty,oneof=normal trace + ++ +++ ++++"`
	UriGlucose         string              `json:"uri_glucose,omitempty" validate:"omitempty,oneof=normal trace + ++ +++ ++++"`
	UriNitrite         string              `json:"uri_nitrite,omitempty" validate:"omitempty,oneof=normal trace small moderate large large+"`
	UriBilirubin       string              `json:"uri_bilirubin,omitempty" validate:"omitempty,oneof=normal trace + ++ +++ ++++"`
	UriLeuko           string              `json:"uri_leuko,omitempty" validate:"omitempty,oneof=normal trace + ++ +++ ++++"`
	UriKetone          string              `json:"uri_ketone,omitempty" validate:"omitempty,oneof=normal trace + ++ +++ ++++"`
	UriUrobili         string              `json:"uri_urobili,omitempty" validate:"omitempty,oneof=normal trace + ++ +++ ++++"`

	Malnutrition bool   `json:"malnutrition"`
	Dehydration  string `json:"dehydration,omitempty" validate:"omitempty,oneof=none mild moderate severe"`
}

func (a *Ambulatory) Kind() Kind { return KindAmbulatory }

// Compute rounds the dipstick decimals to their recorded precision.
func (a *Ambulatory) Compute() {
	if a.Dehydration == "none" {
		a.Dehydration = ""
	}
	if a.UriPH.Valid {
		a.UriPH.Decimal = a.UriPH.Decimal.Round(1)
	}
	if a.UriSpecificGravity.Valid {
		a.UriSpecificGravity.Decimal = a.UriSpecificGravity.Decimal.Round(3)
	}
}

func (a *Ambulatory) Check() error {
	var errs validate.Errors
	if a.UriPH.Valid && (a.UriPH.Decimal.LessThan(phMin) || a.UriPH.Decimal.GreaterThan(phMax)) {
		errs = append(errs, validate.FieldError{Field: "uri_ph", Message: "pH must be between 0 and 14", Type: "range"})
	}
	if a.UriSpecificGravity.Valid &&
		(a.UriSpecificGravity.Decimal.LessThan(sgMin) || a.UriSpecificGravity.Decimal.GreaterThan(sgMax)) {
		errs = append(errs, validate.FieldError{
			Field: "uri_specific_gravity", Message: "specific gravity must be between 1.000 and 1.100", Type: "range",
		})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (a *Ambulatory) dehydrated() bool {
	return a.Dehydration != "" && a.Dehydration != "none"
}

func (a *Ambulatory) MakeCriticalInfo() string {
	var line []string
	if a.dehydrated() {
		line = append(line, "DHy-"+a.Dehydration)
	}
	if t := val(a.Temperature); t != 0 {
		line = append(line, fmt.Sprintf("%4.2f°C", t))
	}
	if ival(a.Systolic) != 0 && ival(a.Diastolic) != 0 {
		line = append(line, fmt.Sprintf("bp %3.0f/%3.0f", float64(*a.Systolic), float64(*a.Diastolic)))
	}
	if v := ival(a.BPM); v != 0 {
		line = append(line, fmt.Sprintf("P %dbpm", v))
	}
	if v := ival(a.RespiratoryRate); v != 0 {
		line = append(line, fmt.Sprintf("R %d", v))
	}
	if v := ival(a.Osat); v != 0 {
		line = append(line, fmt.Sprintf("O2 %d", v))
	}
	return strings.Join(line, ", ")
}

func ival(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func (a *Ambulatory) ReportInfo() string {
	r := &textReport{}
	r.add("== Vital Signs ==")
	if a.dehydrated() {
		r.add("* Dehydrated:", a.Dehydration)
	}
	if a.Malnutrition {
		r.add("* Malnourished")
	}
	if t := val(a.Temperature); t != 0 {
		r.add("* Temperature:", fmt.Sprintf("%4.2f°C", t))
	}
	if ival(a.Systolic) != 0 && ival(a.Diastolic) != 0 {
		r.add("* Blood Pressure:", fmt.Sprintf("%3.0f/%3.0f", float64(*a.Systolic), float64(*a.Diastolic)))
	}
	if v := ival(a.BPM); v != 0 {
		r.add("* Heart Rate:", fmt.Sprintf("%dbpm", v))
	}
	if v := ival(a.RespiratoryRate); v != 0 {
		r.add(fmt.Sprintf("* Respiratory Rate: %d", v))
	}
	if v := ival(a.Osat); v != 0 {
		r.add(fmt.Sprintf("* Oxygen Saturation: %d", v))
	}
	if g := val(a.Glucose); g != 0 {
		r.add(fmt.Sprintf("* Glucose: %5.2f mmol/l", g))
	}
	if a.Pregnant {
		if a.LMP != nil {
			r.add("* Pregnant, LMP:", a.LMP.Format("2006-01-02"))
		} else {
			r.add("* Pregnant")
		}
	}
	a.urineReport(r)
	r.notes(a.Notes)
	return r.join("\n")
}

func (a *Ambulatory) urineReport(r *textReport) {
	var lines [][]string
	if a.UriPH.Valid {
		lines = append(lines, []string{"* pH:", a.UriPH.Decimal.StringFixed(1)})
	}
	if a.UriSpecificGravity.Valid {
		lines = append(lines, []string{"* Specific Gravity:", a.UriSpecificGravity.Decimal.StringFixed(3)})
	}
	for _, f := range []struct{ label, value string }{
		{"Protein", a.UriProtein},
		{"Blood", a.UriBlood},
		{"Glucose", a.UriGlucose},
		{"Nitrite", a.UriNitrite},
		{"Bilirubin", a.UriBilirubin},
		{"Leukocytes", a.UriLeuko},
		{"Ketone", a.UriKetone},
		{"Urobilinogen", a.UriUrobili},
	} {
		if f.value != "" {
			lines = append(lines, []string{"* " + f.label + ":", f.value})
		}
	}
	if len(lines) == 0 {
		return
	}
	r.add("=== Urine Dipstick ===")
	for _, l := range lines {
		r.add(l...)
	}
}
