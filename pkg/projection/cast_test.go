package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/convrep/pkg/report"
)

func TestSchema(t *testing.T) {
	schema := Schema()
	require.Len(t, schema, len(report.Columns))

	assert.Equal(t, TypeDate, schema["fecha_primera_conversacion"])
	assert.Equal(t, TypeInteger, schema["numero_conversaciones"])
	assert.Equal(t, TypeInteger, schema["numero_feedback"])
	assert.Equal(t, TypeString, schema["usuario_id"])
	assert.Equal(t, TypeString, schema["conversacion_completa"])
}

func TestCastCell_Integer(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"3", "3", false},
		{"  42 ", "42", false},
		{"", "", false},
		{"null", "", false},
		{"None", "", false},
		{"nan", "", false},
		{"0", "", false},
		{"no es numero", "", true},
		{"3.5", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := CastCell("numero_conversaciones", tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCastCell_Date(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"2025-08-10", "2025-08-10", false},
		{"10/08/2025", "2025-08-10", false},
		{"8/10/2025", "2025-08-10", false},
		{"2025-08-10T15:04:05Z", "2025-08-10", false},
		{"Sin fecha", "", false},
		{"", "", false},
		{"ayer", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := CastCell("fecha_primera_conversacion", tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCastCell_StringPassthrough(t *testing.T) {
	got, err := CastCell("nombre", "Ana  ")
	require.NoError(t, err)
	assert.Equal(t, "Ana  ", got)
}

func TestCastRow(t *testing.T) {
	row := report.Row{
		UsuarioID:                "1",
		FechaPrimeraConversacion: "10/08/2025",
		NumeroConversaciones:     3,
		NumeroFeedback:           0,
	}

	cells, degraded := CastRow(row)
	require.Len(t, cells, len(report.Columns))
	assert.Equal(t, 0, degraded)
	assert.Equal(t, "2025-08-10", cells[4])
	assert.Equal(t, "3", cells[5])
	assert.Equal(t, "", cells[8])
}

func TestCastRow_DegradesBadDate(t *testing.T) {
	row := report.Row{FechaPrimeraConversacion: "no date"}
	cells, degraded := CastRow(row)
	assert.Equal(t, 1, degraded)
	assert.Equal(t, "", cells[4])
}
