package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crerrors "github.com/otherjamesbrown/convrep/pkg/errors"
)

func TestParseLoose_JSON(t *testing.T) {
	got, err := ParseLoose(`{"type": "like", "comment": "muy bueno"}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"type": "like", "comment": "muy bueno"}, got)
}

func TestParseLoose_PythonLiteral(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{
			"single quoted dict",
			`{'type': 'like', 'comment': 'muy bueno'}`,
			map[string]any{"type": "like", "comment": "muy bueno"},
		},
		{
			"list of dicts",
			`[{'from': 'user', 'text': 'Hola'}, {'from': 'bot', 'text': 'Hola, bienvenido'}]`,
			[]any{
				map[string]any{"from": "user", "text": "Hola"},
				map[string]any{"from": "bot", "text": "Hola, bienvenido"},
			},
		},
		{
			"python keywords",
			`{'ok': True, 'bad': False, 'missing': None}`,
			map[string]any{"ok": true, "bad": false, "missing": nil},
		},
		{
			"escaped single quote",
			`{'text': 'it\'s fine'}`,
			map[string]any{"text": "it's fine"},
		},
		{
			"embedded double quote",
			`{'text': 'dijo "hola"'}`,
			map[string]any{"text": `dijo "hola"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLoose(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLoose_EquivalentForms(t *testing.T) {
	jsonForm := `[{"from": "user", "text": "Hola"}]`
	literalForm := `[{'from': 'user', 'text': 'Hola'}]`

	a, err := ParseLoose(jsonForm)
	require.NoError(t, err)
	b, err := ParseLoose(literalForm)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParseLoose_Failure(t *testing.T) {
	for _, input := range []string{"", "   ", "{broken", "no structure at all {"} {
		_, err := ParseLoose(input)
		assert.Error(t, err, "input %q", input)
		assert.True(t, crerrors.IsParse(err), "input %q should yield a parse error", input)
	}
}

func TestRepairQuotes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"doubled quotes", `{""type"": ""like""}`, `{"type": "like"}`},
		{"wrapping quotes stripped", `"{"a": 1}"`, `{"a": 1}`},
		{"plain text untouched", "sin comillas", "sin comillas"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RepairQuotes(tt.input))
		})
	}
}
