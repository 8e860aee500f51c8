// Package dialogue reconstructs canonical transcripts from the heterogeneous
// conversation representations the document store carries, and extracts
// per-speaker utterances from them.
//
// The canonical transcript is a single pipe-joined string of "role: text"
// segments. Multiple transcripts for one user are later joined with " || ",
// so " | " separates turns inside one dialogue and " || " separates dialogues.
package dialogue

import (
	"strings"

	"github.com/otherjamesbrown/convrep/pkg/record"
)

// maxUtteranceRunes bounds a single utterance inside a transcript. Longer
// texts are cut and marked with an ellipsis so pathological records cannot
// blow up row sizes downstream.
const maxUtteranceRunes = 300

// Reconstruct converts a raw conversation field into the canonical transcript.
// It never fails: unparseable strings come back unchanged and unknown shapes
// are string-coerced. Empty, null, "nan" and "None" inputs yield "".
//
// The cascade, first match wins:
//  1. list of message maps (tagged or already plain)
//  2. string that looks like a JSON/literal array or object: parse and recurse
//  3. tagged map holding a list or string: unwrap and recurse
//  4. single message map: wrap in a one-element list
//  5. anything else: string coercion
func Reconstruct(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case []any:
		return reconstructList(v)
	case string:
		return reconstructString(v)
	case map[string]any:
		if inner, ok := v["L"]; ok {
			if items, ok := inner.([]any); ok {
				return reconstructList(items)
			}
		}
		if s, ok := v["S"].(string); ok {
			return reconstructString(s)
		}
		return reconstructList([]any{v})
	default:
		return record.Coerce(v)
	}
}

func reconstructString(s string) string {
	trimmed := strings.TrimSpace(s)
	switch trimmed {
	case "", "nan", "None", "null":
		return ""
	}

	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		parsed, err := record.ParseLoose(trimmed)
		if err != nil {
			return trimmed
		}
		return Reconstruct(parsed)
	}
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		parsed, err := record.ParseLoose(trimmed)
		if err != nil {
			return trimmed
		}
		return Reconstruct([]any{parsed})
	}
	// Already flattened (or free text): keep as-is.
	return trimmed
}

func reconstructList(items []any) string {
	segments := make([]string, 0, len(items))
	for _, item := range items {
		msg, ok := item.(map[string]any)
		if !ok {
			continue
		}

		// Tagged message: {"M": {"from": {"S": "user"}, "text": {"S": "..."}}}
		if inner, found := msg["M"]; found {
			if fields, ok := inner.(map[string]any); ok {
				segments = appendSegment(segments, fields)
				continue
			}
		}

		// Plain message: {"from": "user", "text": "..."}
		if _, hasFrom := msg["from"]; hasFrom {
			segments = appendSegment(segments, msg)
			continue
		}
		if _, hasText := msg["text"]; hasText {
			segments = appendSegment(segments, msg)
		}
	}
	return strings.Join(segments, " | ")
}

func appendSegment(segments []string, fields map[string]any) []string {
	role := canonicalRole(fieldText(fields["from"]))
	text := cleanUtterance(fieldText(fields["text"]))
	return append(segments, role+": "+text)
}

// fieldText unwraps a possibly still-tagged field value into its text.
func fieldText(v any) string {
	if m, ok := v.(map[string]any); ok {
		if s, ok := m["S"].(string); ok {
			return s
		}
	}
	return record.Coerce(v)
}

// canonicalRole normalizes role aliases. Unknown roles pass through
// lower-cased.
func canonicalRole(raw string) string {
	role := strings.ToLower(strings.TrimSpace(raw))
	switch role {
	case "user", "usuario":
		return "user"
	case "bot", "assistant", "catia":
		return "bot"
	}
	return role
}

func cleanUtterance(text string) string {
	cleaned := strings.ReplaceAll(text, "\n\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\n", " ")
	cleaned = strings.TrimSpace(cleaned)

	runes := []rune(cleaned)
	if len(runes) > maxUtteranceRunes {
		cleaned = string(runes[:maxUtteranceRunes]) + "..."
	}
	return cleaned
}

// CountMessages estimates the number of conversation turns in a transcript by
// counting role markers. Always at least 1, including for empty input, so
// every surviving row contributes to numero_conversaciones.
func CountMessages(transcript string) int {
	trimmed := strings.TrimSpace(transcript)
	if trimmed == "" || trimmed == "nan" {
		return 1
	}
	botCount := strings.Count(trimmed, "bot")
	userCount := strings.Count(trimmed, "user")
	if botCount >= userCount && botCount > 0 {
		return botCount
	}
	if userCount > 0 {
		return userCount
	}
	return 1
}
