package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogIsWellFormed(t *testing.T) {
	cats := Templates()
	require.NotEmpty(t, cats)

	seen := make(map[string]bool)
	for _, cat := range cats {
		assert.NotEmpty(t, cat.Category)
		assert.False(t, seen[cat.Category], "duplicate category %q", cat.Category)
		seen[cat.Category] = true
		require.NotEmpty(t, cat.Commands)
		for _, tmpl := range cat.Commands {
			assert.NotEmpty(t, tmpl.Name)
			assert.NotEmpty(t, tmpl.Command)
		}
	}
}
