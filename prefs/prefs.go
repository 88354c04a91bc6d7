/*
Package prefs provides a persistent store for per-user browser preferences.

Values are serialized as JSON. A Read of a missing key leaves the value
untouched and returns a zero timestamp, not an error; callers treat the zero
timestamp as "never written".
*/
package prefs

import (
	"context"
	"fmt"
	"time"
)

// Store is a persistent key/value store for preference objects.
type Store interface {
	// Read reads a value. It returns the time when the value was written,
	// or a zero timestamp if there is no value.
	Read(ctx context.Context, key string, value interface{}) (time.Time, error)
	// Write writes a value.
	Write(ctx context.Context, key string, value interface{}) error
	// Delete deletes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// DriverType selects the store implementation.
type DriverType string

// store driver types
const (
	DriverTypePostgres DriverType = "postgres"
	DriverTypeLocal    DriverType = "local"
	DriverTypeAWSS3    DriverType = "s3"
	// None disables persistence; preferences fall back to defaults.
	None DriverType = ""
)

// ColumnPrefs is the stored column layout of one table for one identity.
type ColumnPrefs struct {
	// Order lists column names in display order. Columns missing from the
	// list keep their schema order after the listed ones.
	Order []string `json:"order,omitempty"`
	// Hidden lists column names not shown in the table view.
	Hidden []string `json:"hidden,omitempty"`
	// Widths maps column names to pixel widths.
	Widths map[string]int `json:"widths,omitempty"`
}

// ColumnKey returns the store key for the column layout of one table and
// identity.
func ColumnKey(identity string, tableID int) string {
	return fmt.Sprintf("columns:%s:%d", identity, tableID)
}
