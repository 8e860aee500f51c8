package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		blob string
		want string
	}{
		{"empty", "", ""},
		{"whitespace", "   ", ""},
		{"nan placeholder", "nan", ""},
		{"single quoted like", `{'type': 'like', 'comment': 'muy bueno'}`, "like"},
		{"double quoted dislike", `{"type": "dislike"}`, "dislike"},
		{"mixed across merged rows", `{'type': 'like'} || {'type': 'dislike'}`, "mixed"},
		{"case insensitive tag", `{'type': 'LIKE'}`, "like"},
		{"structured fallback list", `[{"type":"like"},{"type":"dislike"}]`, "mixed"},
		{"structured fallback literal", `{'type':'like','comment':'ok'}`, "like"},
		{"no tag at all", "comentario libre sin tipo", ""},
		{"unknown tag ignored", `{'type': 'meh'}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.blob))
		})
	}
}

func TestClassify_ScenarioB(t *testing.T) {
	blob := `{'type':'like','comment':'muy bueno'}`
	assert.Equal(t, "like", Classify(blob))
	assert.Equal(t, 1, Count(blob))
	assert.Equal(t, "muy bueno", Responses(blob))
}

func TestCount(t *testing.T) {
	tests := []struct {
		name string
		blob string
		want int
	}{
		{"empty", "", 0},
		{"null placeholder", "null", 0},
		{"one like", `{'type': 'like'}`, 1},
		{"like and dislike", `{'type': 'like'} || {'type': 'dislike'}`, 2},
		{"double quoted", `{"type": "like"} || {"type": "like"}`, 2},
		{"unparseable long blob counts one", "este blob no tiene formato alguno", 1},
		{"json tight spacing counts per tag", `[{"type":"like"},{"type":"dislike"}]`, 2},
		{"tight spacing misses literals, heuristic counts one", `{'type':'like'} | {'type':'dislike'}`, 1},
		{"short garbage counts zero", "x", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Count(tt.blob))
		})
	}
}

func TestResponses(t *testing.T) {
	tests := []struct {
		name string
		blob string
		want string
	}{
		{"empty", "", ""},
		{"comment single quoted", `{'type': 'like', 'comment': 'muy bueno'}`, "muy bueno"},
		{"comment double quoted", `{"type": "like", "comment": "excelente"}`, "excelente"},
		{"option extracted", `{'type': 'dislike', 'option': 'respuesta incompleta'}`, "respuesta incompleta"},
		{
			"comment and option",
			`{'comment': 'bien', 'option': 'rapidez'}`,
			"bien | rapidez",
		},
		{
			"dedup across merged rows",
			`{'comment': 'bien'} || {'comment': 'bien'} || {'comment': 'otro'}`,
			"bien | otro",
		},
		{"null comment skipped", `{'comment': 'None'}`, ""},
		{"no extractable fields", "texto sin estructura", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Responses(tt.blob))
		})
	}
}

func TestResponses_StructuredFallback(t *testing.T) {
	// A non-string comment defeats the quote-style regexes; the structured
	// parse per pipe segment still finds it.
	blob := `{"comment": 123}`
	assert.Equal(t, "123", Responses(blob))
}

func TestJoinBlobs(t *testing.T) {
	got := JoinBlobs([]string{`{'type': 'like'}`, "", "nan", `{'type': 'dislike'}`})
	assert.Equal(t, `{'type': 'like'} || {'type': 'dislike'}`, got)

	assert.Equal(t, "", JoinBlobs(nil))
	assert.Equal(t, "", JoinBlobs([]string{"", "None"}))
}
