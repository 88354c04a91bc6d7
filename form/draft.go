// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

/*
Package form builds and submits row edit forms from column descriptors.

A Draft is the in-progress edited state of one row. Drafts are immutable
values: Set returns a new draft and never touches its receiver, so a view can
hold on to the previous draft while an edit is pending.
*/
package form

import (
	"github.com/griddeck/griddeck/baserow"
)

// Draft is the not-yet-submitted edited state of one row, keyed by user
// field name.
type Draft map[string]any

// NewDraft initializes a draft from an existing row (shallow copy), or an
// empty draft when the form creates a new row.
func NewDraft(existing baserow.Row) Draft {
	draft := make(Draft, len(existing))
	for name, value := range existing {
		draft[name] = value
	}
	return draft
}

// Set returns a new draft with the named field set to value. No other field
// is affected.
func (d Draft) Set(name string, value any) Draft {
	next := make(Draft, len(d)+1)
	for k, v := range d {
		next[k] = v
	}
	next[name] = value
	return next
}

// Get returns the current value of the named field.
func (d Draft) Get(name string) any {
	return d[name]
}
