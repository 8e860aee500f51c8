package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteRows(t *testing.T) {
	rows := CompleteRows([]Row{
		{
			UsuarioID:            "1",
			ConversacionCompleta: "user: Hola | bot: Hola, bienvenido | user: ¿Cuánto cuesta un certificado?",
			FeedbackTotal:        `{'type': 'like'}`,
		},
		{UsuarioID: "2"},
	})
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].NumeroConversaciones)
	assert.Equal(t, "Hola | ¿Cuánto cuesta un certificado?", rows[0].PreguntaConversacion)
	assert.Equal(t, 1, rows[0].NumeroFeedback)

	assert.Equal(t, 1, rows[1].NumeroConversaciones)
	assert.Equal(t, "", rows[1].PreguntaConversacion)
	assert.Equal(t, 0, rows[1].NumeroFeedback)
}

func TestAggregate_NamePrefersRealValue(t *testing.T) {
	rows := Aggregate([]Row{
		{UsuarioID: "42", Nombre: DefaultName},
		{UsuarioID: "42", Nombre: "Ana"},
	})
	require.Len(t, rows, 1)
	assert.Equal(t, "Ana", rows[0].Nombre)
}

func TestAggregate_SumsAndJoins(t *testing.T) {
	rows := Aggregate([]Row{
		{
			UsuarioID:                "1",
			Nombre:                   "Ana",
			Gerencia:                 "Bogotá",
			Ciudad:                   "Bogotá",
			FechaPrimeraConversacion: "10/08/2025",
			NumeroConversaciones:     2,
			ConversacionCompleta:     "user: Hola | bot: Hola",
			FeedbackTotal:            `{'type': 'like'}`,
			NumeroFeedback:           1,
			PreguntaConversacion:     "Hola",
		},
		{
			UsuarioID:                "1",
			Nombre:                   "",
			FechaPrimeraConversacion: "12/08/2025",
			NumeroConversaciones:     3,
			ConversacionCompleta:     "user: Otra | bot: Claro",
			FeedbackTotal:            `{'type': 'dislike', 'comment': 'incompleto'}`,
			NumeroFeedback:           1,
			PreguntaConversacion:     "Otra",
		},
	})
	require.Len(t, rows, 1)

	agg := rows[0]
	assert.Equal(t, "Ana", agg.Nombre)
	assert.Equal(t, "10/08/2025", agg.FechaPrimeraConversacion)
	assert.Equal(t, 5, agg.NumeroConversaciones)
	assert.Equal(t, 2, agg.NumeroFeedback)
	assert.Equal(t, "user: Hola | bot: Hola || user: Otra | bot: Claro", agg.ConversacionCompleta)
	assert.Equal(t, "Hola || Otra", agg.PreguntaConversacion)
	assert.Equal(t, "mixed", agg.Feedback)
	assert.Equal(t, "incompleto", agg.RespuestaFeedback)
}

func TestAggregate_PreservesFirstSeenOrderAndIdentities(t *testing.T) {
	input := []Row{
		{UsuarioID: "b", NumeroConversaciones: 1},
		{UsuarioID: "a", NumeroConversaciones: 2},
		{UsuarioID: "b", NumeroConversaciones: 4},
		{UsuarioID: "c", NumeroConversaciones: 8},
	}

	rows := Aggregate(input)
	require.Len(t, rows, 3)
	assert.Equal(t, "b", rows[0].UsuarioID)
	assert.Equal(t, "a", rows[1].UsuarioID)
	assert.Equal(t, "c", rows[2].UsuarioID)

	// No identity disappears and the per-identity sums match the input.
	sums := map[string]int{}
	for _, row := range input {
		sums[row.UsuarioID] += row.NumeroConversaciones
	}
	for _, row := range rows {
		assert.Equal(t, sums[row.UsuarioID], row.NumeroConversaciones)
	}
}

func TestAggregate_LocationDefault(t *testing.T) {
	rows := Aggregate([]Row{
		{UsuarioID: "1", Gerencia: "", Ciudad: ""},
	})
	require.Len(t, rows, 1)
	assert.Equal(t, DefaultLocationAggregate, rows[0].Gerencia)
	assert.Equal(t, DefaultLocationAggregate, rows[0].Ciudad)
}

func TestRowRecord_SchemaCompleteness(t *testing.T) {
	require.Len(t, Columns, 12)

	record := Row{}.Record()
	require.Len(t, record, len(Columns))
	assert.Equal(t, "0", record[5])
	assert.Equal(t, "0", record[8])

	full := Row{
		UsuarioID:                "1",
		Nombre:                   "Ana",
		Gerencia:                 "Bogotá",
		Ciudad:                   "Bogotá",
		FechaPrimeraConversacion: "10/08/2025",
		NumeroConversaciones:     3,
		ConversacionCompleta:     "user: Hola",
		FeedbackTotal:            `{'type': 'like'}`,
		NumeroFeedback:           1,
		PreguntaConversacion:     "Hola",
		Feedback:                 "like",
		RespuestaFeedback:        "ok",
	}
	assert.Equal(t, []string{
		"1", "Ana", "Bogotá", "Bogotá", "10/08/2025", "3",
		"user: Hola", `{'type': 'like'}`, "1", "Hola", "like", "ok",
	}, full.Record())
}
