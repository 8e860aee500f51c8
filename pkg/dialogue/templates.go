package dialogue

import (
	"regexp"
	"strings"
)

// inferenceRule maps a trigger pattern found in a bot reply to the user
// question that most plausibly provoked it. The table is ordered; the first
// matching rule wins. Inherently approximate: only used when a transcript
// carries a bot reply with no user turn at all, never where exactness matters.
type inferenceRule struct {
	pattern *regexp.Regexp
	build   func(match []string) string
}

var inferenceRules = []inferenceRule{
	{
		pattern: regexp.MustCompile(`el trámite de ([\p{L}\s]+?) (?:es|se realiza|consiste)`),
		build: func(m []string) string {
			return "¿Cómo hago el trámite de " + strings.TrimSpace(m[1]) + "?"
		},
	},
	{
		pattern: regexp.MustCompile(`el certificado ([\p{L}\s]+?) (?:es|incluye|contiene)`),
		build: func(m []string) string {
			return "¿Qué es el certificado " + strings.TrimSpace(m[1]) + "?"
		},
	},
	{
		pattern: regexp.MustCompile(`el chip`),
		build:   func([]string) string { return "¿Qué es el CHIP?" },
	},
	{
		pattern: regexp.MustCompile(`(?:cuesta|valor|costo)`),
		build:   func([]string) string { return "¿Cuál es el costo del trámite?" },
	},
	{
		pattern: regexp.MustCompile(`(?:documentos? necesarios?|requisitos?)`),
		build:   func([]string) string { return "¿Qué documentos necesito?" },
	},
	{
		pattern: regexp.MustCompile(`(?:tiempo de respuesta|duración|días hábiles)`),
		build:   func([]string) string { return "¿Cuánto tiempo tarda el trámite?" },
	},
	{
		pattern: regexp.MustCompile(`(?:ubicad|direcci[oó]n|sede)`),
		build:   func([]string) string { return "¿Dónde queda ubicado catastro?" },
	},
	{
		pattern: regexp.MustCompile(`horario.*atenci[oó]n`),
		build:   func([]string) string { return "¿Cuál es el horario de atención?" },
	},
}

// keywordPattern backs the generic fallback when no rule matches.
var keywordPattern = regexp.MustCompile(`\b(?:catastro|certificado|trámite|avalúo|chip|desenglobe|englobe)\b`)

// minInferenceRunes: replies shorter than this carry too little signal to
// infer anything from.
const minInferenceRunes = 10

// InferQuestion derives the implied user question from a bare bot reply.
// Returns "" when nothing can be inferred.
func InferQuestion(botReply string) string {
	trimmed := strings.TrimSpace(botReply)
	if len(trimmed) < minInferenceRunes {
		return ""
	}
	lower := strings.ToLower(trimmed)

	for _, rule := range inferenceRules {
		if m := rule.pattern.FindStringSubmatch(lower); m != nil {
			if q := strings.TrimSpace(rule.build(m)); q != "" {
				return q
			}
		}
	}

	if kw := keywordPattern.FindString(lower); kw != "" {
		return "Consulta sobre " + kw
	}
	return ""
}
