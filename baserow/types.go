// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

package baserow

import "sort"

// Table is one table of the remote tabular-data service.
type Table struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	DatabaseID int    `json:"database_id"`
	// TokenIndex is set by the gateway when tables from several workspaces
	// are aggregated into one listing.
	TokenIndex *int `json:"_token_index,omitempty"`
}

// SelectOption is one choice of a single or multiple select field.
type SelectOption struct {
	ID    int    `json:"id"`
	Value string `json:"value"`
	Color string `json:"color,omitempty"`
}

// DateFormat is the display format of a date field.
type DateFormat string

// date formats supported by the service
const (
	DateFormatISO DateFormat = "ISO"
	DateFormatUS  DateFormat = "US"
	DateFormatEU  DateFormat = "EU"
)

// Field is the column descriptor of one table field. It is immutable for the
// duration of a table view and fetched fresh per table load.
type Field struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Primary  bool   `json:"primary"`
	ReadOnly bool   `json:"read_only"`

	SelectOptions []SelectOption `json:"select_options,omitempty"`

	LinkRowTableID               *int `json:"link_row_table_id,omitempty"`
	LinkRowMultipleRelationships bool `json:"link_row_multiple_relationships,omitempty"`

	DateIncludeTime bool       `json:"date_include_time,omitempty"`
	DateFormat      DateFormat `json:"date_format,omitempty"`
}

// Row is one record, a mapping from user field name to raw cell value. The
// shape of a cell value depends on the field type: scalars for text-like
// fields, {id,value,color} objects for single selects, object lists for
// multiple selects and relations, file reference lists for file fields.
type Row map[string]any

// ID returns the numeric row identifier, or 0 if the row has none.
func (r Row) ID() int {
	raw, ok := r["id"]
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// RowPage is one page of a row listing.
type RowPage struct {
	Count   int     `json:"count"`
	Next    *string `json:"next"`
	Results []Row   `json:"results"`
}

// Full reports whether the page came back with the requested number of rows,
// i.e. whether a subsequent page may hold more data.
func (p RowPage) Full(size int) bool {
	return len(p.Results) >= size
}

// Thumbnail is one rendition of an uploaded file.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// FileRef is the reference to one uploaded file, as stored in file cells and
// as returned by the upload endpoint.
type FileRef struct {
	Name        string               `json:"name"`
	VisibleName string               `json:"visible_name,omitempty"`
	URL         string               `json:"url,omitempty"`
	Thumbnails  map[string]Thumbnail `json:"thumbnails,omitempty"`
}

// SmallestThumbnail returns the URL of the thumbnail with the smallest area,
// or the empty string when the file has no thumbnails. Renditions without
// dimensions only win when no sized rendition exists; ties are broken by key
// so the choice is deterministic.
func (f FileRef) SmallestThumbnail() string {
	names := make([]string, 0, len(f.Thumbnails))
	for name := range f.Thumbnails {
		names = append(names, name)
	}
	sort.Strings(names)

	best := ""
	bestArea := 0
	for _, name := range names {
		t := f.Thumbnails[name]
		if t.URL == "" {
			continue
		}
		area := t.Width * t.Height
		switch {
		case best == "":
			best, bestArea = t.URL, area
		case area > 0 && (bestArea == 0 || area < bestArea):
			best, bestArea = t.URL, area
		}
	}
	return best
}

// Application is a database application, used for display-name lookups.
type Application struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
