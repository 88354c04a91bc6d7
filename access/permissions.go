// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

package access

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/griddeck/griddeck/baserow"
	"github.com/griddeck/griddeck/core/logger"
)

// PermissionLabel is one capability granted to a group on a table.
type PermissionLabel string

// permission labels
const (
	PermissionView   PermissionLabel = "View"
	PermissionEdit   PermissionLabel = "Edit"
	PermissionCreate PermissionLabel = "Create"
	PermissionDelete PermissionLabel = "Delete"
)

// LabelSet is a set of permission labels.
type LabelSet map[PermissionLabel]struct{}

// Add adds a label to the set.
func (s LabelSet) Add(label PermissionLabel) {
	s[label] = struct{}{}
}

// Has reports whether the set contains the label.
func (s LabelSet) Has(label PermissionLabel) bool {
	_, ok := s[label]
	return ok
}

// HasAnyView reports whether the set allows showing the table at all.
// Possessing any capability, even a pure write capability, implies view for
// list-visibility purposes. This is an inclusive OR, not a hierarchy check.
func (s LabelSet) HasAnyView() bool {
	return s.Has(PermissionView) || s.Has(PermissionEdit) ||
		s.Has(PermissionCreate) || s.Has(PermissionDelete)
}

// CanCreate reports whether the set authorizes creating rows. Unlike
// HasAnyView this requires the exact label.
func (s LabelSet) CanCreate() bool { return s.Has(PermissionCreate) }

// CanUpdate reports whether the set authorizes updating rows.
func (s LabelSet) CanUpdate() bool { return s.Has(PermissionEdit) }

// CanDelete reports whether the set authorizes deleting rows.
func (s LabelSet) CanDelete() bool { return s.Has(PermissionDelete) }

// PermissionSet maps table ids to the labels granted on them. It is rebuilt
// on every resolution and read-only afterwards.
type PermissionSet map[int]LabelSet

// HasAnyView reports whether the set for the given table allows showing it.
// A table with no entry is not visible.
func (p PermissionSet) HasAnyView(tableID int) bool {
	set, ok := p[tableID]
	return ok && set.HasAnyView()
}

// Resolver computes the permission set of one identity by joining its group
// memberships against the permissions table.
type Resolver struct {
	Client baserow.Client

	// UsersTableID is the table holding {email, groups} memberships.
	UsersTableID int
	// PermissionsTableID is the table holding {group, tables, permission}
	// grant entries.
	PermissionsTableID int

	// Field names inside the two tables. All have defaults.
	EmailField      string // default "Email"
	GroupsField     string // default "Groups"
	GroupField      string // default "Group"
	TablesField     string // default "Table ids"
	PermissionField string // default "Permission"

	// DefaultEmail is used when no identity email is available at all. This
	// is a stop-gap for deployments without a login flow, injected through
	// configuration and empty by default.
	DefaultEmail string

	// LabelAliases maps deployment-specific label spellings onto the
	// canonical labels, for permission tables maintained in another
	// language.
	LabelAliases map[string]PermissionLabel
}

func (r Resolver) emailField() string      { return fieldOr(r.EmailField, "Email") }
func (r Resolver) groupsField() string     { return fieldOr(r.GroupsField, "Groups") }
func (r Resolver) groupField() string      { return fieldOr(r.GroupField, "Group") }
func (r Resolver) tablesField() string     { return fieldOr(r.TablesField, "Table ids") }
func (r Resolver) permissionField() string { return fieldOr(r.PermissionField, "Permission") }

func fieldOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

// Resolve computes the permission set for the given identity email. An empty
// email falls back to the configured default identity. The result depends
// only on the current membership and permission-table contents; callers
// re-resolve per view mount.
//
// Resolution fails closed: any transport failure or unexpected shape yields
// an empty set and an error, never a partial set presented as complete.
func (r Resolver) Resolve(ctx context.Context, email string) (PermissionSet, error) {
	result := PermissionSet{}

	if email == "" {
		email = r.DefaultEmail
	}
	if email == "" {
		return result, fmt.Errorf("no identity email available")
	}

	groups, err := r.groupMemberships(ctx, email)
	if err != nil {
		return PermissionSet{}, err
	}
	if len(groups) == 0 {
		// unknown user or no memberships: nothing is visible
		return result, nil
	}

	for _, groupID := range groups {
		if err := r.collectGroupGrants(ctx, groupID, result); err != nil {
			return PermissionSet{}, err
		}
	}
	return result, nil
}

// groupMemberships looks up the identity's group ids by exact email match.
// The first matching user row wins; no match means an empty group list.
func (r Resolver) groupMemberships(ctx context.Context, email string) ([]int, error) {
	filters := baserow.NewFilterTree(baserow.FilterAND, baserow.Filter{
		Field: r.emailField(),
		Type:  "equal",
		Value: email,
	})
	page, _, err := r.Client.Rows(r.UsersTableID).
		WithSize(baserow.MaxPageSize).
		WithFilters(filters).
		List(ctx)
	if err != nil {
		return nil, fmt.Errorf("user lookup: %w", err)
	}
	if len(page.Results) == 0 {
		return nil, nil
	}

	user := page.Results[0]
	refs, _ := user[r.groupsField()].([]any)
	var groups []int
	for _, ref := range refs {
		if id, ok := refID(ref); ok {
			groups = append(groups, id)
		}
	}
	return groups, nil
}

// collectGroupGrants pages through the permission entries referencing one
// group and merges their grants into the result map. Pages are fetched
// sequentially, each one only after the prior page's cursor indicated more
// data.
func (r Resolver) collectGroupGrants(ctx context.Context, groupID int, result PermissionSet) error {
	filters := baserow.NewFilterTree(baserow.FilterAND, baserow.Filter{
		Field: r.groupField(),
		Type:  "link_row_has",
		Value: strconv.Itoa(groupID),
	})
	listing := r.Client.Rows(r.PermissionsTableID).
		WithSize(baserow.MaxPageSize).
		WithFilters(filters)

	for page := 1; ; page++ {
		entries, _, err := listing.WithPage(page).List(ctx)
		if err != nil {
			return fmt.Errorf("permission entries for group %d: %w", groupID, err)
		}
		for _, entry := range entries.Results {
			r.mergeEntry(ctx, entry, result)
		}
		if entries.Next == nil || *entries.Next == "" {
			return nil
		}
	}
}

// mergeEntry adds one permission entry's grants to the result map. Labels
// accumulate per table across groups and entries: union, never overwrite.
// Entries with no resolvable label or table id are skipped without failing
// the whole resolution.
func (r Resolver) mergeEntry(ctx context.Context, entry baserow.Row, result PermissionSet) {
	label, ok := r.normalizeLabel(entry[r.permissionField()])
	if !ok {
		return
	}

	refs, _ := entry[r.tablesField()].([]any)
	for _, ref := range refs {
		tableID, ok := tableIDOfRef(ref)
		if !ok {
			logger.FromContext(ctx).Debugln("permission entry references no numeric table id, skipped")
			continue
		}
		set, ok := result[tableID]
		if !ok {
			set = LabelSet{}
			result[tableID] = set
		}
		set.Add(label)
	}
}

func (r Resolver) normalizeLabel(raw any) (PermissionLabel, bool) {
	value := strings.TrimSpace(valueString(raw))
	if value == "" {
		return "", false
	}
	if label, ok := r.LabelAliases[value]; ok {
		return label, true
	}
	switch strings.ToLower(value) {
	case "view":
		return PermissionView, true
	case "edit":
		return PermissionEdit, true
	case "create":
		return PermissionCreate, true
	case "delete":
		return PermissionDelete, true
	}
	return "", false
}

// valueString unwraps a single-select cell into its display value.
func valueString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case map[string]any:
		if s, ok := v["value"].(string); ok {
			return s
		}
	}
	return ""
}

// tableIDOfRef extracts the numeric table id from one table reference of a
// permission entry. The reference's own embedded value, which is expected to
// hold the table id, is preferred over the raw relation id.
func tableIDOfRef(ref any) (int, bool) {
	m, ok := ref.(map[string]any)
	if !ok {
		return refID(ref)
	}
	if raw, ok := m["value"]; ok {
		if id, ok := numericID(raw); ok {
			return id, true
		}
	}
	if raw, ok := m["id"]; ok {
		return numericID(raw)
	}
	return 0, false
}

func refID(ref any) (int, bool) {
	if m, ok := ref.(map[string]any); ok {
		if raw, ok := m["id"]; ok {
			return numericID(raw)
		}
		return 0, false
	}
	return numericID(ref)
}

func numericID(raw any) (int, bool) {
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		id, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return id, true
	}
	return 0, false
}
