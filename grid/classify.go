// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

/*
Package grid turns raw column descriptors and cell values into something a
front end can draw.

Classify maps the service's free-form field type tags onto a small set of
semantic categories. Render turns a category plus a raw cell value into a
display value. Both are pure functions; neither ever panics on unexpected
input, unknown shapes degrade to generic text.
*/
package grid

import (
	"strings"

	"github.com/griddeck/griddeck/baserow"
)

// Category is the semantic category of a field, shared by the renderer and
// the form builder.
type Category string

// field categories
const (
	CategoryText         Category = "text"
	CategoryLongText     Category = "long_text"
	CategoryNumber       Category = "number"
	CategoryURL          Category = "url"
	CategoryEmail        Category = "email"
	CategoryPhone        Category = "phone"
	CategoryDate         Category = "date"
	CategoryBoolean      Category = "boolean"
	CategorySingleChoice Category = "single_choice"
	CategoryMultiChoice  Category = "multi_choice"
	CategoryRelation     Category = "relation"
	CategoryFile         Category = "file"
	CategoryCollaborator Category = "collaborator"
	// CategoryReadOnly is the fallback for computed and unknown field types.
	// It renders as generic text and is never editable.
	CategoryReadOnly Category = "read_only"
)

// computed field types are never written back to the service
var computedTypes = map[string]bool{
	"formula": true,
	"lookup":  true,
	"count":   true,
	"rollup":  true,
}

// Classify maps a column descriptor to its field category. It is total over
// all type tags: anything unmatched falls back to the read-only text
// category. Matching is substring based on the lower-cased tag, except for
// the structured-value types which require an exact tag.
func Classify(field baserow.Field) Category {
	t := strings.ToLower(field.Type)

	// exact matches first: these require structured values rather than scalars
	switch t {
	case "single_select":
		return CategorySingleChoice
	case "multiple_select":
		return CategoryMultiChoice
	case "link_row":
		return CategoryRelation
	}

	if computedTypes[t] {
		return CategoryReadOnly
	}

	switch {
	case strings.Contains(t, "long_text"):
		return CategoryLongText
	case strings.Contains(t, "number"):
		return CategoryNumber
	case strings.Contains(t, "url"):
		return CategoryURL
	case strings.Contains(t, "email"):
		return CategoryEmail
	case strings.Contains(t, "phone"):
		return CategoryPhone
	case strings.Contains(t, "boolean"):
		return CategoryBoolean
	case strings.Contains(t, "collaborator"), strings.Contains(t, "created_by"), strings.Contains(t, "modified_by"):
		return CategoryCollaborator
	case strings.Contains(t, "date"), strings.Contains(t, "created_on"), strings.Contains(t, "last_modified"):
		return CategoryDate
	case strings.Contains(t, "file"):
		return CategoryFile
	case strings.Contains(t, "text"):
		return CategoryText
	}
	return CategoryReadOnly
}

// Editable reports whether a field of this category accepts user input. The
// read-only flag on the descriptor overrides the editing affordance but not
// the display affordance: a read-only date still renders as a date.
func Editable(field baserow.Field) bool {
	if field.ReadOnly {
		return false
	}
	return Classify(field) != CategoryReadOnly
}

// Computed reports whether the field's value is derived by the service
// (formula, lookup, count, rollup). Computed fields are stripped before any
// write.
func Computed(field baserow.Field) bool {
	return computedTypes[strings.ToLower(field.Type)]
}

// TypeIcon returns a small glyph for the field's type, used in grid headers.
func TypeIcon(field baserow.Field) string {
	t := strings.ToLower(field.Type)
	switch {
	case strings.Contains(t, "boolean"):
		return "✓"
	case strings.Contains(t, "date"):
		return "🗓"
	case strings.Contains(t, "email"):
		return "✉"
	case strings.Contains(t, "url"):
		return "🔗"
	case strings.Contains(t, "phone"):
		return "📞"
	case strings.Contains(t, "file"):
		return "🖼"
	case strings.Contains(t, "single_select"):
		return "🔘"
	case strings.Contains(t, "multiple_select"):
		return "🔳"
	case strings.Contains(t, "number"):
		return "#"
	case strings.Contains(t, "link_row"):
		return "↔"
	case strings.Contains(t, "lookup"), strings.Contains(t, "search"):
		return "🔍"
	case strings.Contains(t, "collaborator"), strings.Contains(t, "created_by"), strings.Contains(t, "last_modified_by"):
		return "👤"
	case strings.Contains(t, "text"):
		return "📝"
	}
	return "▫"
}
