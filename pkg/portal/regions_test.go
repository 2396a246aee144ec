package portal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRegionOptions(t *testing.T) {
	html := `
		<option value="">Seleccione...</option>
		<option value="91"> Amazonas </option>
		<option value="05">Antioquia</option>
		<option value="76">Valle del Cauca</option>
		<option value="   ">placeholder</option>
	`

	regions, err := parseRegionOptions(html)
	require.NoError(t, err)

	// Document order is preserved and blank-valued placeholders dropped.
	assert.Equal(t, []Region{
		{Code: "91", Name: "Amazonas"},
		{Code: "05", Name: "Antioquia"},
		{Code: "76", Name: "Valle del Cauca"},
	}, regions)
}

func TestParseRegionOptionsEmptyCatalog(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"no options", ""},
		{"only placeholder", `<option value="">Seleccione...</option>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRegionOptions(tt.html)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCatalogEmpty))
		})
	}
}
