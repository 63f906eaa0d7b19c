package domain

import "time"

// Form field types
const (
	FieldText      = "text"
	FieldNumber    = "number"
	FieldDate      = "date"
	FieldTime      = "time"
	FieldSelect    = "select"
	FieldRadio     = "radio"
	FieldCheckbox  = "checkbox"
	FieldYesNo     = "yesno"
	FieldPhoto     = "photo"
	FieldSignature = "signature"
	FieldRating    = "rating"
)

// KnownFieldType reports whether t is a recognized field type, including the
// photo/signature/rating placeholders that clients render as unsupported.
func KnownFieldType(t string) bool {
	switch t {
	case FieldText, FieldNumber, FieldDate, FieldTime,
		FieldSelect, FieldRadio, FieldCheckbox, FieldYesNo,
		FieldPhoto, FieldSignature, FieldRating:
		return true
	}
	return false
}

// IsChoiceType choice fields carry an options list.
func IsChoiceType(t string) bool {
	return t == FieldSelect || t == FieldRadio || t == FieldCheckbox
}

// FormField one input of a form definition.
type FormField struct {
	FieldID string   `json:"field_id"`
	Label   string   `json:"label" validate:"required,max=200"`
	Type    string   `json:"type" validate:"required,fieldtype"`
	Options []string `json:"options,omitempty"`
}

// Form data-collection form definition (forms table, fields stored as JSONB).
type Form struct {
	FormID    string      `json:"form_id"`
	Title     string      `json:"title"`
	Fields    []FormField `json:"fields"`
	IsDefault bool        `json:"is_default"`
	CreatedAt time.Time   `json:"created_at"`
}

// HasField reports whether id is one of the form's field ids.
func (f *Form) HasField(id string) bool {
	for _, fld := range f.Fields {
		if fld.FieldID == id {
			return true
		}
	}
	return false
}
