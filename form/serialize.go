// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

package form

import (
	"context"

	"github.com/griddeck/griddeck/baserow"
	"github.com/griddeck/griddeck/grid"
)

// SerializeForWrite converts a draft into the payload shape the write API
// expects. The rules apply per field, independently:
//
//  1. fields backed by read-only or computed columns are dropped
//  2. file fields keep the full file reference objects
//  3. relation fields reduce to bare row ids; single-valued relations
//     collapse to the first selected id, or an empty array when nothing is
//     selected
//  4. multi-choice fields reduce to bare option ids, always array-valued
//  5. single objects carrying an id reduce to the bare id
//  6. empty relation values normalize to an empty array, never null
func SerializeForWrite(draft Draft, fields []baserow.Field) map[string]any {
	payload := map[string]any{}
	for _, field := range fields {
		value, present := draft[field.Name]
		if !present {
			continue
		}
		if field.ReadOnly || grid.Computed(field) {
			continue
		}

		category := grid.Classify(field)
		switch category {
		case grid.CategoryReadOnly:
			continue

		case grid.CategoryFile:
			payload[field.Name] = fileList(value)

		case grid.CategoryRelation:
			ids := idList(value)
			if field.LinkRowMultipleRelationships {
				payload[field.Name] = ids
				continue
			}
			// single-valued relation: first selected id wins
			if len(ids) > 0 {
				payload[field.Name] = ids[0]
			} else {
				payload[field.Name] = []int{}
			}

		case grid.CategoryMultiChoice:
			payload[field.Name] = idList(value)

		default:
			payload[field.Name] = scalarForWrite(value)
		}
	}
	return payload
}

// idList reduces a cell value to bare numeric ids. Accepts lists of
// {id,...} objects, lists of bare ids, a single object, a single id, or
// nothing. Null, undefined and empty strings normalize to an empty list.
func idList(value any) []int {
	switch v := value.(type) {
	case nil:
		return []int{}
	case string:
		// strings cannot be row ids; empty strings in particular mean
		// "no selection"
		return []int{}
	case []any:
		ids := make([]int, 0, len(v))
		for _, item := range v {
			if id, ok := bareID(item); ok {
				ids = append(ids, id)
			}
		}
		return ids
	case []int:
		return v
	}
	if id, ok := bareID(value); ok {
		return []int{id}
	}
	return []int{}
}

func bareID(item any) (int, bool) {
	switch v := item.(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	case map[string]any:
		if raw, ok := v["id"]; ok {
			return bareID(raw)
		}
	}
	return 0, false
}

// scalarForWrite unwraps a still-nested single object carrying an id (rule
// 5), for example a single-choice value that was never touched in the form.
func scalarForWrite(value any) any {
	if m, ok := value.(map[string]any); ok {
		if id, ok := bareID(m); ok {
			return id
		}
	}
	return value
}

func fileList(value any) []baserow.FileRef {
	refs := []baserow.FileRef{}
	switch v := value.(type) {
	case []baserow.FileRef:
		return v
	case baserow.FileRef:
		return append(refs, v)
	case []any:
		for _, item := range v {
			if ref, ok := asFileRef(item); ok {
				refs = append(refs, ref)
			}
		}
	case map[string]any:
		if ref, ok := asFileRef(v); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

func asFileRef(item any) (baserow.FileRef, bool) {
	if ref, ok := item.(baserow.FileRef); ok {
		return ref, true
	}
	m, ok := item.(map[string]any)
	if !ok {
		return baserow.FileRef{}, false
	}
	ref := baserow.FileRef{}
	if name, ok := m["name"].(string); ok {
		ref.Name = name
	}
	if visible, ok := m["visible_name"].(string); ok {
		ref.VisibleName = visible
	}
	if u, ok := m["url"].(string); ok {
		ref.URL = u
	}
	if thumbs, ok := m["thumbnails"].(map[string]any); ok {
		ref.Thumbnails = map[string]baserow.Thumbnail{}
		for name, rawThumb := range thumbs {
			tm, ok := rawThumb.(map[string]any)
			if !ok {
				continue
			}
			thumb := baserow.Thumbnail{}
			if u, ok := tm["url"].(string); ok {
				thumb.URL = u
			}
			if w, ok := tm["width"].(float64); ok {
				thumb.Width = int(w)
			}
			if h, ok := tm["height"].(float64); ok {
				thumb.Height = int(h)
			}
			ref.Thumbnails[name] = thumb
		}
	}
	return ref, ref.Name != "" || ref.URL != ""
}

// Result is the outcome of a successful submission: the written row and
// whether it was created or updated, so the caller can reconcile its local
// row state (insert at head on create, replace by id on update).
type Result struct {
	Row     baserow.Row
	Created bool
}

// Submit serializes the draft and writes it: create when there is no
// existing row, update against the existing row's identity otherwise. On
// failure the error carries the raw API error body and the draft stays
// valid; nothing is partially committed.
func Submit(ctx context.Context, client baserow.Client, tableID int, draft Draft, fields []baserow.Field, existing baserow.Row) (Result, error) {
	payload := SerializeForWrite(draft, fields)

	if existing == nil {
		row, _, err := client.CreateRow(ctx, tableID, payload)
		if err != nil {
			return Result{}, err
		}
		return Result{Row: row, Created: true}, nil
	}

	row, _, err := client.UpdateRow(ctx, tableID, existing.ID(), payload)
	if err != nil {
		return Result{}, err
	}
	return Result{Row: row, Created: false}, nil
}
