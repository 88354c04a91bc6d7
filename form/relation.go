// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

package form

import (
	"context"
	"fmt"
	"sync"

	"github.com/griddeck/griddeck/baserow"
	"github.com/griddeck/griddeck/core/logger"
)

// AllRelationOptions loads the options of every relation field in the list,
// one concurrent fetch per field. A failing fetch is logged and yields no map
// entry for that field; the other fields are unaffected.
func AllRelationOptions(ctx context.Context, client baserow.Client, fields []baserow.Field) map[int][]Option {
	var (
		wg    sync.WaitGroup
		mutex sync.Mutex
	)
	options := map[int][]Option{}
	for _, field := range fields {
		if field.LinkRowTableID == nil {
			continue
		}
		wg.Add(1)
		go func(field baserow.Field) {
			defer wg.Done()
			opts, err := RelationOptions(ctx, client, field)
			if err != nil {
				logger.FromContext(ctx).WithError(err).Debugln("cannot load relation options for", field.Name)
				return
			}
			mutex.Lock()
			options[field.ID] = opts
			mutex.Unlock()
		}(field)
	}
	wg.Wait()
	return options
}

// RelationOptions loads the selectable options of a relation control: all
// rows of the related table, paged 200 at a time while pages come back full.
// Each option is labelled with the related table's primary column value,
// falling back to "ID: <id>" when that value is absent.
func RelationOptions(ctx context.Context, client baserow.Client, field baserow.Field) ([]Option, error) {
	if field.LinkRowTableID == nil {
		return nil, fmt.Errorf("field %q is not a relation", field.Name)
	}
	relatedTableID := *field.LinkRowTableID

	relatedFields, _, err := client.Fields(ctx, relatedTableID)
	if err != nil {
		return nil, fmt.Errorf("fields of related table %d: %w", relatedTableID, err)
	}
	primary := ""
	for _, f := range relatedFields {
		if f.Primary {
			primary = f.Name
			break
		}
	}

	rows, err := client.Rows(relatedTableID).WithSize(baserow.MaxPageSize).ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("rows of related table %d: %w", relatedTableID, err)
	}

	options := make([]Option, 0, len(rows))
	for _, row := range rows {
		options = append(options, Option{ID: row.ID(), Label: relationLabel(row, primary)})
	}
	return options, nil
}

func relationLabel(row baserow.Row, primary string) string {
	if primary != "" {
		if raw, ok := row[primary]; ok && raw != nil {
			if s, ok := raw.(string); ok && s != "" {
				return s
			}
			if s := fmt.Sprintf("%v", raw); s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("ID: %d", row.ID())
}
