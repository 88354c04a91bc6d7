// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

package baserow

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/xeipuuv/gojsonschema"
)

// FilterType combines the filters of one tree level.
type FilterType string

// supported filter combinators
const (
	FilterAND FilterType = "AND"
	FilterOR  FilterType = "OR"
)

// Filter is one field condition of a filter tree.
type Filter struct {
	Field string `json:"field"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// FilterTree is the filter payload of a row listing, serialized into the
// "filters" query parameter.
type FilterTree struct {
	FilterType FilterType   `json:"filter_type"`
	Filters    []Filter     `json:"filters"`
	Groups     []FilterTree `json:"groups"`
}

// NewFilterTree builds a filter tree from conditions. The filter type
// defaults to AND.
func NewFilterTree(filterType FilterType, filters ...Filter) *FilterTree {
	if filterType != FilterOR {
		filterType = FilterAND
	}
	return &FilterTree{
		FilterType: filterType,
		Filters:    filters,
		Groups:     []FilterTree{},
	}
}

//go:embed filter_schema.json
var filterSchemaJSON string

var filterSchema = mustCompileFilterSchema()

func mustCompileFilterSchema() *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(filterSchemaJSON))
	if err != nil {
		panic(fmt.Errorf("filter schema does not compile: %w", err))
	}
	return schema
}

// Validate checks the filter tree against the wire schema, so malformed trees
// are rejected before they reach the upstream service.
func (t *FilterTree) Validate() error {
	if t == nil {
		return nil
	}
	j, err := json.Marshal(t)
	if err != nil {
		return err
	}
	result, err := filterSchema.Validate(gojsonschema.NewBytesLoader(j))
	if err != nil {
		return err
	}
	if !result.Valid() {
		var reasons []string
		for _, e := range result.Errors() {
			reasons = append(reasons, e.String())
		}
		return fmt.Errorf("invalid filter tree: %s", strings.Join(reasons, "; "))
	}
	return nil
}

// ValidateFilterJSON validates a raw filters query value against the wire
// schema. It is used by the gateway before forwarding client-supplied trees.
func ValidateFilterJSON(raw string) error {
	var tree FilterTree
	if err := json.Unmarshal([]byte(raw), &tree); err != nil {
		return fmt.Errorf("filters is not a filter tree: %w", err)
	}
	return tree.Validate()
}

// OpsForFieldType returns the filter operators applicable to the given field
// type tag. Unknown types get the generic text operators.
func OpsForFieldType(fieldType string) []string {
	t := strings.ToLower(fieldType)
	switch {
	case strings.Contains(t, "boolean"):
		return []string{"boolean"}
	case strings.Contains(t, "date"):
		return []string{"date_is", "date_is_not", "date_is_before", "date_is_on_or_before",
			"date_is_after", "date_is_on_or_after", "date_is_within",
			"date_equals_day_of_month", "empty", "not_empty"}
	case strings.Contains(t, "number"):
		return []string{"equal", "not_equal", "higher_than", "higher_than_or_equal",
			"lower_than", "lower_than_or_equal", "is_even_and_whole", "empty", "not_empty"}
	case strings.Contains(t, "single_select"):
		return []string{"single_select_equal", "single_select_not_equal",
			"single_select_is_any_of", "single_select_is_none_of", "empty", "not_empty"}
	case strings.Contains(t, "multiple_select"):
		return []string{"multiple_select_has", "empty", "not_empty"}
	case strings.Contains(t, "link_row"):
		return []string{"link_row_has", "link_row_has_not", "link_row_contains",
			"link_row_not_contains", "empty", "not_empty"}
	case strings.Contains(t, "collaborator"):
		return []string{"user_is", "user_is_not", "multiple_collaborators_has",
			"multiple_collaborators_has_not", "empty", "not_empty"}
	case strings.Contains(t, "file"):
		return []string{"filename_contains", "has_file_type", "files_lower_than", "empty", "not_empty"}
	}
	return []string{"equal", "not_equal", "contains", "contains_not",
		"contains_word", "doesnt_contain_word", "empty", "not_empty"}
}
