// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

package grid

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/griddeck/griddeck/baserow"
)

// PlaceholderThumbnail is used when a file carries no thumbnails or its
// image fails to load.
const PlaceholderThumbnail = "data:image/svg+xml;utf8," +
	`<svg xmlns="http://www.w3.org/2000/svg" width="32" height="32" viewBox="0 0 32 32">` +
	`<rect width="32" height="32" fill="%23e9ecef"/>` +
	`<path d="M6 22l5-6 3 4 4-5 8 10H6z" fill="%23adb5bd"/>` +
	`<circle cx="11" cy="11" r="3" fill="%239aa0a6"/></svg>`

// Kind tags the shape of a display value.
type Kind string

// display value kinds
const (
	KindEmpty      Kind = "empty"
	KindText       Kind = "text"
	KindLink       Kind = "link"
	KindBadge      Kind = "badge"
	KindBadgeList  Kind = "badge_list"
	KindThumbnails Kind = "thumbnails"
)

// LinkScheme distinguishes how a link display value opens.
type LinkScheme string

// link schemes
const (
	LinkHTTP   LinkScheme = "http"
	LinkMailto LinkScheme = "mailto"
	LinkTel    LinkScheme = "tel"
)

// ThumbnailRef is one thumbnail of a file display value.
type ThumbnailRef struct {
	Source string `json:"source"`
	Href   string `json:"href,omitempty"`
	Title  string `json:"title,omitempty"`
}

// DisplayValue is the rendered representation of one cell. Exactly the
// fields belonging to Kind are set.
type DisplayValue struct {
	Kind Kind `json:"kind"`

	Text string `json:"text,omitempty"`

	Href   string     `json:"href,omitempty"`
	Scheme LinkScheme `json:"scheme,omitempty"`

	// Badges carries one entry per badge for KindBadge and KindBadgeList,
	// order preserved.
	Badges []Badge `json:"badges,omitempty"`

	Thumbnails []ThumbnailRef `json:"thumbnails,omitempty"`
}

// Badge is one badge of a badge display value.
type Badge struct {
	Label string `json:"label"`
	Tone  string `json:"tone,omitempty"`
}

func text(s string) DisplayValue { return DisplayValue{Kind: KindText, Text: s} }

func empty() DisplayValue { return DisplayValue{Kind: KindEmpty} }

// Render produces the display representation of one raw cell value. It never
// panics: malformed values degrade to the generic string formatting.
func Render(field baserow.Field, raw any) DisplayValue {
	if raw == nil {
		return empty()
	}

	switch Classify(field) {
	case CategoryURL:
		u := FormatCellValue(raw)
		return DisplayValue{Kind: KindLink, Href: u, Text: u, Scheme: LinkHTTP}

	case CategoryEmail:
		e := FormatCellValue(raw)
		return DisplayValue{Kind: KindLink, Href: "mailto:" + e, Text: e, Scheme: LinkMailto}

	case CategoryPhone:
		p := FormatCellValue(raw)
		return DisplayValue{Kind: KindLink, Href: "tel:" + p, Text: p, Scheme: LinkTel}

	case CategoryBoolean:
		val, ok := asBool(raw)
		if !ok {
			return text(FormatCellValue(raw))
		}
		if val {
			return DisplayValue{Kind: KindBadge, Badges: []Badge{{Label: "Yes", Tone: "success"}}}
		}
		return DisplayValue{Kind: KindBadge, Badges: []Badge{{Label: "No", Tone: "secondary"}}}

	case CategoryDate:
		if s, ok := renderDate(field, raw); ok {
			return text(s)
		}
		// unparseable dates fall through to generic formatting
		return text(FormatCellValue(raw))

	case CategorySingleChoice:
		return DisplayValue{Kind: KindBadge, Badges: []Badge{{Label: FormatCellValue(raw), Tone: "info"}}}

	case CategoryMultiChoice:
		var badges []Badge
		for _, item := range asArray(raw) {
			badges = append(badges, Badge{Label: FormatCellValue(item), Tone: "info"})
		}
		return DisplayValue{Kind: KindBadgeList, Badges: badges}

	case CategoryCollaborator:
		var names []string
		for _, user := range asArray(raw) {
			names = append(names, collaboratorName(user))
		}
		return text(strings.Join(names, ", "))

	case CategoryFile:
		var thumbs []ThumbnailRef
		for _, item := range asArray(raw) {
			thumbs = append(thumbs, fileThumbnail(item))
		}
		return DisplayValue{Kind: KindThumbnails, Thumbnails: thumbs}
	}

	// relation, lookup, text, number and everything unclassified
	return text(FormatCellValue(raw))
}

// FormatCellValue flattens a raw cell value into a plain string. Arrays join
// their elements' display strings with ", "; objects prefer their "value"
// key, then "name", then "id"; scalars are stringified directly. The
// function is idempotent on already flattened strings.
func FormatCellValue(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, elementString(item))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		if value, ok := v["value"]; ok {
			return scalarString(value)
		}
		if name, ok := v["name"]; ok {
			return scalarString(name)
		}
		j, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(j)
	}
	return scalarString(raw)
}

func elementString(item any) string {
	if m, ok := item.(map[string]any); ok {
		if value, ok := m["value"]; ok {
			return scalarString(value)
		}
		if name, ok := m["name"]; ok {
			return scalarString(name)
		}
		if id, ok := m["id"]; ok {
			return scalarString(id)
		}
		return ""
	}
	return scalarString(item)
}

func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		if s {
			return "true"
		}
		return "false"
	case float64:
		// row numbers come out of JSON as float64; print integers without
		// a fraction
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%v", s)
	}
	return fmt.Sprintf("%v", v)
}

func asArray(raw any) []any {
	if arr, ok := raw.([]any); ok {
		return arr
	}
	return []any{raw}
}

func asBool(raw any) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(v) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

func collaboratorName(user any) string {
	if m, ok := user.(map[string]any); ok {
		if name, ok := m["name"]; ok {
			return scalarString(name)
		}
		if value, ok := m["value"]; ok {
			return scalarString(value)
		}
		if id, ok := m["id"]; ok {
			return scalarString(id)
		}
	}
	return scalarString(user)
}

func fileThumbnail(item any) ThumbnailRef {
	thumb := ThumbnailRef{Source: PlaceholderThumbnail}
	m, ok := item.(map[string]any)
	if !ok {
		return thumb
	}
	j, err := json.Marshal(m)
	if err != nil {
		return thumb
	}
	var ref baserow.FileRef
	if err := json.Unmarshal(j, &ref); err != nil {
		return thumb
	}
	if src := ref.SmallestThumbnail(); src != "" {
		thumb.Source = src
	}
	thumb.Href = ref.URL
	thumb.Title = ref.Name
	return thumb
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

func renderDate(field baserow.Field, raw any) (string, bool) {
	s, ok := raw.(string)
	if !ok {
		return "", false
	}
	var parsed time.Time
	var err error
	for _, layout := range dateLayouts {
		parsed, err = time.Parse(layout, s)
		if err == nil {
			break
		}
	}
	if err != nil {
		return "", false
	}

	var dateLayout string
	switch field.DateFormat {
	case baserow.DateFormatUS:
		dateLayout = "01/02/2006"
	case baserow.DateFormatEU:
		dateLayout = "02/01/2006"
	default:
		dateLayout = "2006-01-02"
	}
	if field.DateIncludeTime {
		return parsed.Format(dateLayout + " 15:04"), true
	}
	return parsed.Format(dateLayout), true
}
