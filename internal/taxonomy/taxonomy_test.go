package taxonomy_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/fisly/internal/taxonomy"
)

func TestLoadDefault(t *testing.T) {
	tax, err := taxonomy.LoadDefault()
	require.NoError(t, err)

	assert.Greater(t, tax.Len(), 10)
	assert.Equal(t, "other.misc.unclassified", tax.Fallback().ID)

	node, ok := tax.Node("food.dairy.milk")
	require.True(t, ok)
	assert.Equal(t, taxonomy.LevelSubcategory, node.Level)
	assert.Equal(t, "Milk", node.NameEN)

	path := tax.Path("food.dairy.milk.uht")
	require.Len(t, path, 4)
	assert.Equal(t, "food", path[0].ID)
	assert.Equal(t, "food.dairy", path[1].ID)
	assert.Equal(t, "food.dairy.milk", path[2].ID)
	assert.Equal(t, "food.dairy.milk.uht", path[3].ID)

	deps := tax.Departments()
	assert.Equal(t, "food", deps[0].ID)
	assert.Equal(t, taxonomy.OtherID, deps[len(deps)-1].ID)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		asset   string
		wantErr string
	}{
		{
			name:    "No departments",
			asset:   `departments: []`,
			wantErr: "no departments",
		},
		{
			name: "Missing other",
			asset: `departments:
  - id: food
    name: Gıda`,
			wantErr: `"other" department`,
		},
		{
			name: "Duplicate id",
			asset: `departments:
  - id: other
    categories:
      - id: other
`,
			wantErr: "duplicate",
		},
		{
			name: "Wrong nesting",
			asset: `departments:
  - id: other
    item_groups:
      - id: other.x
`,
			wantErr: "wrong level",
		},
		{
			name:    "Malformed yaml",
			asset:   "departments: [",
			wantErr: "decoding taxonomy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := taxonomy.Load(strings.NewReader(tt.asset))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestChildren(t *testing.T) {
	tax, err := taxonomy.LoadDefault()
	require.NoError(t, err)

	children := tax.Children("food.dairy")
	require.NotEmpty(t, children)
	assert.Equal(t, "food.dairy.milk", children[0].ID)
	assert.Nil(t, tax.Children("missing"))
}
