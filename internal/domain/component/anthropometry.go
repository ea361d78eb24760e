package component

import (
	"fmt"
	"math"
	"strings"
)

const (
	inchesPerCm = 1 / 2.54
	poundsPerKg  = 2.20462262
)

// Anthropometry records body measurements. Lengths are centimetres and
// weight is kilograms.
type Anthropometry struct {
	Base
	Weight            *float64 `json:"weight,omitempty" validate:"omitempty,gte=0,lte=700"`
	Height            *float64 `json:"height,omitempty" validate:"omitempty,gte=0,lte=300"`
	BMI               float64  `json:"bmi"`
	HeadCircumference *float64 `json:"head_circumference,omitempty" validate:"omitempty,gte=0,lte=100"`
	AbdominalCirc     *float64 `json:"abdominal_circ,omitempty" validate:"omitempty,gte=0,lte=400"`
	Hip               *float64 `json:"hip,omitempty" validate:"omitempty,gte=0,lte=400"`
	WHR               float64  `json:"whr"`
}

func (a *Anthropometry) Kind() Kind { return KindAnthropometry }

func val(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Compute derives BMI and the waist to hip ratio, zero when an input is missing.
func (a *Anthropometry) Compute() {
	a.BMI = 0
	if w, h := val(a.Weight), val(a.Height); w > 0 && h > 0 {
		a.BMI = w / math.Pow(h/100, 2)
	}
	a.WHR = 0
	if waist, hip := val(a.AbdominalCirc), val(a.Hip); waist > 0 && hip > 0 {
		a.WHR = waist / hip
	}
}

func (a *Anthropometry) MakeCriticalInfo() string {
	var out []string
	weight, height := val(a.Weight), val(a.Height)
	if weight != 0 && height != 0 {
		out = append(out,
			fmt.Sprintf("W: %5.2f", weight), "kg,",
			fmt.Sprintf("H: %5.1f", height), "cm",
			"=", fmt.Sprintf("(BMI) %5.2f", a.BMI))
	} else {
		if weight != 0 {
			out = append(out, fmt.Sprintf("Weight: %5.2f", weight))
		}
		if height != 0 {
			out = append(out, fmt.Sprintf("Height: %5.2f", height))
		}
	}
	waist, hip := val(a.AbdominalCirc), val(a.Hip)
	if waist != 0 {
		out = append(out, fmt.Sprintf("Waist: %5.2fcm", waist))
	}
	if hip != 0 {
		if waist != 0 {
			out = append(out, "x")
		}
		out = append(out, fmt.Sprintf("Hip: %5.2fcm", hip))
	}
	if a.WHR != 0 {
		out = append(out, fmt.Sprintf("= %5.2f", a.WHR))
	}
	return strings.Join(out, " ")
}

// feetInches splits a length in inches into whole feet and remaining inches.
func feetInches(inches float64) (float64, float64) {
	ft := math.Floor(inches / 12)
	return ft, inches - ft*12
}

func (a *Anthropometry) ReportInfo() string {
	r := &textReport{}
	r.add("== Anthropometric Measurements ==")
	if h := val(a.Height); h != 0 {
		ft, in := feetInches(h * inchesPerCm)
		r.add(fmt.Sprintf("* Height: %7.2fcm", h), fmt.Sprintf("(%2.0fft %2.0fin)", ft, in))
	}
	if w := val(a.Weight); w != 0 {
		r.add(fmt.Sprintf("* Weight: %7.2fkg", w), fmt.Sprintf("(%5.2flbs)", w*poundsPerKg))
	}
	if v := val(a.AbdominalCirc); v != 0 {
		r.add(fmt.Sprintf("* Waist: %7.2f", v), fmt.Sprintf("(%5.2fin)", v*inchesPerCm))
	}
	if v := val(a.Hip); v != 0 {
		r.add(fmt.Sprintf("* Hip: %7.2f", v), fmt.Sprintf("(%5.2fin)", v*inchesPerCm))
	}
	if v := val(a.HeadCircumference); v != 0 {
		r.add(fmt.Sprintf("* Head : %7.2f", v), fmt.Sprintf("(%5.2fin)", v*inchesPerCm))
	}
	if a.WHR != 0 || a.BMI != 0 {
		r.add("")
		if a.BMI != 0 {
			r.add(fmt.Sprintf("* Body Mass Index: %7.2f", a.BMI))
		}
		if a.WHR != 0 {
			r.add(fmt.Sprintf("* Waist to Hip Ratio: %5.2f", a.WHR))
		}
	}
	r.notes(a.Notes)
	return r.join("\n")
}
