package componenttype

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ComponentType maps to encounter_component_type. Model names the component
// kind and ViewForm the form used to edit it.
type ComponentType struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name" validate:"max=255"`
	Code      string    `json:"code" validate:"max=15"`
	Model     string    `json:"model" validate:"required,max=64"`
	ViewForm  string    `json:"view_form" validate:"required,max=128"`
	Ordering  int       `json:"ordering"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Selection is one active type as offered to clinicians.
type Selection struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Code  string    `json:"code"`
	Model string    `json:"model"`
}

// State is the selector key for this type.
func (s Selection) State() string { return StateName(s.Code) }

var alphaWords = regexp.MustCompile(`[A-Za-z]+`)

// StateName lower-cases the alphabetic words of code and joins them with
// underscores: "Mental Status" becomes "mental_status".
func StateName(code string) string {
	words := alphaWords.FindAllString(code, -1)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "_")
}

// titleOf turns a model identifier into a display name.
func titleOf(model string) string {
	words := alphaWords.FindAllString(model, -1)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// truncateCode keeps the first 15 characters.
func truncateCode(s string) string {
	r := []rune(s)
	if len(r) > 15 {
		r = r[:15]
	}
	return string(r)
}
