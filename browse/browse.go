// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

/*
Package browse composes the table list and the rendered table view out of the
schema, row and permission primitives. It owns the fan-out: independent
fetches run concurrently and the slow path is always the remote service.
*/
package browse

import (
	"context"
	"sort"
	"sync"

	"github.com/griddeck/griddeck/access"
	"github.com/griddeck/griddeck/baserow"
	"github.com/griddeck/griddeck/core/logger"
)

// TableEntry is one table of the browsable list.
type TableEntry struct {
	Table baserow.Table `json:"table"`
	// DatabaseName is the display name of the database application holding
	// the table. Empty when the name lookup failed; the entry stays usable.
	DatabaseName string          `json:"database_name"`
	Labels       access.LabelSet `json:"-"`
	CanCreate    bool            `json:"can_create"`
	CanUpdate    bool            `json:"can_update"`
	CanDelete    bool            `json:"can_delete"`
}

// Browser provides the read model of the table browser.
type Browser struct {
	Client   baserow.Client
	Resolver access.Resolver
}

// TableList returns the tables the identity may see, enriched with database
// display names and the identity's capabilities per table.
//
// The table listing and the permission resolution run concurrently. The table
// listing must succeed; a failed permission resolution degrades to an empty
// permission set with a logged warning, so nothing is visible rather than
// everything. Database name lookups run concurrently afterwards and are fault
// tolerant, a failed lookup leaves the name empty.
func (b Browser) TableList(ctx context.Context, email string) ([]TableEntry, error) {
	var (
		wg       sync.WaitGroup
		tables   []baserow.Table
		perms    access.PermissionSet
		tableErr error
		permErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		tables, _, tableErr = b.Client.AllTables(ctx)
	}()
	go func() {
		defer wg.Done()
		perms, permErr = b.Resolver.Resolve(ctx, email)
	}()
	wg.Wait()
	if tableErr != nil {
		return nil, tableErr
	}
	if permErr != nil {
		// fail closed: no permissions means no visible tables
		logger.FromContext(ctx).WithError(permErr).Warningln("cannot resolve permissions for", email)
		perms = access.PermissionSet{}
	}

	var entries []TableEntry
	databaseIDs := map[int]struct{}{}
	for _, table := range tables {
		labels := perms[table.ID]
		if !labels.HasAnyView() {
			continue
		}
		entries = append(entries, TableEntry{
			Table:     table,
			Labels:    labels,
			CanCreate: labels.CanCreate(),
			CanUpdate: labels.CanUpdate(),
			CanDelete: labels.CanDelete(),
		})
		databaseIDs[table.DatabaseID] = struct{}{}
	}

	names := b.databaseNames(ctx, databaseIDs)
	for i := range entries {
		entries[i].DatabaseName = names[entries[i].Table.DatabaseID]
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].DatabaseName != entries[j].DatabaseName {
			return entries[i].DatabaseName < entries[j].DatabaseName
		}
		return entries[i].Table.Name < entries[j].Table.Name
	})
	return entries, nil
}

// databaseNames looks up the display names of the given database ids, all
// concurrently. Lookup failures are logged and yield no map entry.
func (b Browser) databaseNames(ctx context.Context, ids map[int]struct{}) map[int]string {
	var (
		wg    sync.WaitGroup
		mutex sync.Mutex
	)
	names := map[int]string{}
	for id := range ids {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			app, _, err := b.Client.Application(ctx, id)
			if err != nil {
				logger.FromContext(ctx).WithError(err).Debugln("cannot resolve database name", id)
				return
			}
			mutex.Lock()
			names[id] = app.Name
			mutex.Unlock()
		}(id)
	}
	wg.Wait()
	return names
}
