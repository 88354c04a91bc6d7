package grid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/griddeck/griddeck/baserow"
	"github.com/griddeck/griddeck/grid"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		fieldType string
		expected  grid.Category
	}{
		{"text", grid.CategoryText},
		{"long_text", grid.CategoryLongText},
		{"number", grid.CategoryNumber},
		{"url", grid.CategoryURL},
		{"email", grid.CategoryEmail},
		{"phone_number", grid.CategoryPhone},
		{"date", grid.CategoryDate},
		{"created_on", grid.CategoryDate},
		{"last_modified", grid.CategoryDate},
		{"boolean", grid.CategoryBoolean},
		{"single_select", grid.CategorySingleChoice},
		{"multiple_select", grid.CategoryMultiChoice},
		{"link_row", grid.CategoryRelation},
		{"file", grid.CategoryFile},
		{"multiple_collaborators", grid.CategoryCollaborator},
		{"created_by", grid.CategoryCollaborator},
		// modified-by is a person, not a timestamp, despite the tag
		// containing "last_modified"
		{"last_modified_by", grid.CategoryCollaborator},
		{"formula", grid.CategoryReadOnly},
		{"lookup", grid.CategoryReadOnly},
		{"count", grid.CategoryReadOnly},
		{"rollup", grid.CategoryReadOnly},
		{"something_new", grid.CategoryReadOnly},
		{"", grid.CategoryReadOnly},
	}

	for _, tc := range testCases {
		t.Run(tc.fieldType, func(t *testing.T) {
			category := grid.Classify(baserow.Field{Type: tc.fieldType})
			assert.Equal(t, tc.expected, category)
		})
	}
}

func TestEditable(t *testing.T) {
	assert.True(t, grid.Editable(baserow.Field{Type: "text"}))
	assert.False(t, grid.Editable(baserow.Field{Type: "text", ReadOnly: true}))
	assert.False(t, grid.Editable(baserow.Field{Type: "formula"}))
	assert.False(t, grid.Editable(baserow.Field{Type: "unheard_of"}))
}

func TestComputed(t *testing.T) {
	assert.True(t, grid.Computed(baserow.Field{Type: "formula"}))
	assert.True(t, grid.Computed(baserow.Field{Type: "rollup"}))
	assert.False(t, grid.Computed(baserow.Field{Type: "text"}))
	assert.False(t, grid.Computed(baserow.Field{Type: "link_row"}))
}
