// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

package form

import (
	"fmt"
	"time"

	"github.com/griddeck/griddeck/baserow"
	"github.com/griddeck/griddeck/grid"
)

// ControlKind is the native input kind of a form control.
type ControlKind string

// control kinds
const (
	ControlText        ControlKind = "text"
	ControlNumber      ControlKind = "number"
	ControlURL         ControlKind = "url"
	ControlEmail       ControlKind = "email"
	ControlTel         ControlKind = "tel"
	ControlDate        ControlKind = "date"
	ControlDateTime    ControlKind = "datetime-local"
	ControlTriState    ControlKind = "tristate"
	ControlSelect      ControlKind = "select"
	ControlMultiSelect ControlKind = "multiselect"
	ControlRelation    ControlKind = "relation"
	ControlFile        ControlKind = "file"
	ControlTextArea    ControlKind = "textarea"
	ControlReadOnly    ControlKind = "readonly"
)

// Option is one selectable choice of a select or relation control.
type Option struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// Control describes one editable form control for a field. The front end
// draws the control; all typing rules live here.
type Control struct {
	Field    baserow.Field `json:"field"`
	Kind     ControlKind   `json:"kind"`
	Required bool          `json:"required"`
	// Multiple marks multi-selection for relation controls.
	Multiple bool `json:"multiple,omitempty"`
	// Options holds the choices of select controls. Relation controls load
	// their options separately, see RelationOptions.
	Options []Option `json:"options,omitempty"`
	// Display carries the rendered value for read-only controls.
	Display grid.DisplayValue `json:"display,omitempty"`
}

// ControlFor returns the control descriptor for one field. Required is set
// iff the column is primary; the tri-state boolean accepts unset only for
// non-primary columns.
func ControlFor(field baserow.Field, current any) Control {
	control := Control{Field: field, Required: field.Primary}

	if !grid.Editable(field) {
		control.Kind = ControlReadOnly
		control.Required = false
		control.Display = grid.Render(field, current)
		return control
	}

	switch grid.Classify(field) {
	case grid.CategoryNumber:
		control.Kind = ControlNumber
	case grid.CategoryURL:
		control.Kind = ControlURL
	case grid.CategoryEmail:
		control.Kind = ControlEmail
	case grid.CategoryPhone:
		control.Kind = ControlTel
	case grid.CategoryDate:
		if field.DateIncludeTime {
			control.Kind = ControlDateTime
		} else {
			control.Kind = ControlDate
		}
	case grid.CategoryBoolean:
		control.Kind = ControlTriState
	case grid.CategorySingleChoice:
		control.Kind = ControlSelect
		control.Options = selectOptions(field)
	case grid.CategoryMultiChoice:
		control.Kind = ControlMultiSelect
		control.Options = selectOptions(field)
	case grid.CategoryRelation:
		control.Kind = ControlRelation
		control.Multiple = field.LinkRowMultipleRelationships
	case grid.CategoryFile:
		control.Kind = ControlFile
	case grid.CategoryLongText:
		control.Kind = ControlTextArea
	default:
		control.Kind = ControlText
	}
	return control
}

// Controls returns one control per column, in column order.
func Controls(fields []baserow.Field, draft Draft) []Control {
	controls := make([]Control, 0, len(fields))
	for _, field := range fields {
		controls = append(controls, ControlFor(field, draft.Get(field.Name)))
	}
	return controls
}

func selectOptions(field baserow.Field) []Option {
	options := make([]Option, 0, len(field.SelectOptions))
	for _, o := range field.SelectOptions {
		options = append(options, Option{ID: o.ID, Label: o.Value, Color: o.Color})
	}
	return options
}

// DateInputValue converts a stored cell value into the value of a date or
// datetime-local input: an ISO-8601 prefix matching the field's precision,
// 10 characters for date-only fields and 16 with time. Date-only values are
// sliced as calendar dates, not converted through an instant, so the day
// never shifts with the timezone.
func DateInputValue(field baserow.Field, raw any) string {
	s, ok := raw.(string)
	if !ok || s == "" {
		return ""
	}
	if !field.DateIncludeTime {
		if len(s) >= 10 {
			if _, err := time.Parse("2006-01-02", s[:10]); err == nil {
				return s[:10]
			}
		}
		return ""
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.999999Z07:00", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02T15:04")
		}
	}
	return ""
}

// ParseDateInput validates a date input value and returns the cell value to
// store in the draft. Date-only inputs stay calendar dates; inputs with time
// are kept at minute precision.
func ParseDateInput(field baserow.Field, input string) (string, error) {
	if input == "" {
		return "", nil
	}
	layout := "2006-01-02"
	if field.DateIncludeTime {
		layout = "2006-01-02T15:04"
	}
	if _, err := time.Parse(layout, input); err != nil {
		return "", fmt.Errorf("%q is not a valid %s value: %w", input, layout, err)
	}
	return input, nil
}
