// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

package browse

import (
	"context"
	"sort"
	"sync"

	"github.com/griddeck/griddeck/baserow"
	"github.com/griddeck/griddeck/grid"
	"github.com/griddeck/griddeck/prefs"
)

// Query describes one page of a table view.
type Query struct {
	TableID    int
	Page       int
	Size       int
	Search     string
	OrderBy    string
	Descending bool
	Filters    *baserow.FilterTree
}

// Column is one displayed column of a table view.
type Column struct {
	Field    baserow.Field `json:"field"`
	Category grid.Category `json:"category"`
	Icon     string        `json:"icon"`
	Width    int           `json:"width,omitempty"`
}

// RowView is one rendered row.
type RowView struct {
	ID    int                 `json:"id"`
	Cells []grid.DisplayValue `json:"cells"`
	// Raw carries the unrendered row for form prefill.
	Raw baserow.Row `json:"raw"`
}

// View is one rendered page of a table.
type View struct {
	Columns    []Column  `json:"columns"`
	Rows       []RowView `json:"rows"`
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
	Count      int       `json:"count"`
}

// TableView fetches schema and one row page concurrently and renders every
// cell for display. The page arithmetic is derived from the service's total
// count, not from the fetched page.
func (b Browser) TableView(ctx context.Context, query Query) (View, error) {
	size := query.Size
	if size <= 0 || size > baserow.MaxPageSize {
		size = baserow.MaxPageSize
	}
	page := query.Page
	if page < 1 {
		page = 1
	}

	var (
		wg       sync.WaitGroup
		fields   []baserow.Field
		rowPage  baserow.RowPage
		fieldErr error
		rowErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		fields, _, fieldErr = b.Client.Fields(ctx, query.TableID)
	}()
	go func() {
		defer wg.Done()
		rowPage, _, rowErr = b.Client.Rows(query.TableID).
			WithPage(page).
			WithSize(size).
			WithSearch(query.Search).
			WithOrderBy(query.OrderBy, query.Descending).
			WithFilters(query.Filters).
			List(ctx)
	}()
	wg.Wait()
	if err := ctx.Err(); err != nil {
		// late results of a cancelled view are discarded
		return View{}, err
	}
	if fieldErr != nil {
		return View{}, fieldErr
	}
	if rowErr != nil {
		return View{}, rowErr
	}

	view := View{
		Page:       page,
		Count:      rowPage.Count,
		TotalPages: totalPages(rowPage.Count, size),
	}
	for _, field := range fields {
		view.Columns = append(view.Columns, Column{
			Field:    field,
			Category: grid.Classify(field),
			Icon:     grid.TypeIcon(field),
		})
	}
	for _, row := range rowPage.Results {
		rowView := RowView{ID: row.ID(), Raw: row}
		for _, column := range view.Columns {
			rowView.Cells = append(rowView.Cells, grid.Render(column.Field, row[column.Field.Name]))
		}
		view.Rows = append(view.Rows, rowView)
	}
	return view, nil
}

func totalPages(count, size int) int {
	if count <= 0 {
		return 1
	}
	pages := (count + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	return pages
}

// ApplyColumnPrefs reorders columns as the stored layout dictates, drops the
// hidden ones and attaches widths. Columns the layout does not mention keep
// their schema order after the listed ones.
func ApplyColumnPrefs(columns []Column, layout prefs.ColumnPrefs) []Column {
	hidden := map[string]struct{}{}
	for _, name := range layout.Hidden {
		hidden[name] = struct{}{}
	}
	position := map[string]int{}
	for i, name := range layout.Order {
		position[name] = i
	}

	var result []Column
	for _, column := range columns {
		if _, ok := hidden[column.Field.Name]; ok {
			continue
		}
		if width, ok := layout.Widths[column.Field.Name]; ok {
			column.Width = width
		}
		result = append(result, column)
	}
	sort.SliceStable(result, func(i, j int) bool {
		pi, iOK := position[result[i].Field.Name]
		pj, jOK := position[result[j].Field.Name]
		if iOK && jOK {
			return pi < pj
		}
		// listed columns come before unlisted ones
		return iOK && !jOK
	})
	return result
}
