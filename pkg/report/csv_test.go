package report

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeCSV(t *testing.T) {
	payload, err := EncodeCSV([]Row{
		{UsuarioID: "1", Nombre: "Ana", NumeroConversaciones: 2},
		{UsuarioID: "2", Nombre: "Con, coma", ConversacionCompleta: "user: \"Hola\""},
	})
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(payload))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, Columns, records[0])
	assert.Equal(t, "Ana", records[1][1])
	assert.Equal(t, "2", records[1][5])
	assert.Equal(t, "Con, coma", records[2][1])
	assert.Equal(t, `user: "Hola"`, records[2][6])
}

func TestEncodeCSV_EmptyRows(t *testing.T) {
	payload, err := EncodeCSV(nil)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(payload))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, Columns, records[0])
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "reports/etl-process1/Dashboard_Usuarios_Catia_PROCESADO_COMPLETO.csv", ObjectKey())
}
