package dialogue

import (
	"regexp"
	"strings"
)

// Role selects which speaker's utterances Extract returns.
type Role int

const (
	RoleUser Role = iota
	RoleBot
)

// Speaker prefixes recognized at the start of a transcript segment, longest
// first so "usuario:" wins over "u:".
var (
	userPrefixes = []string{"usuario:", "user:", "usr:", "u:"}
	botPrefixes  = []string{"asistente:", "assistant:", "bot:", "b:"}
)

// Last-resort scan patterns for transcripts that carry role markers without
// segment separators.
var (
	userScanPattern = regexp.MustCompile(`(?i)user:\s*([^|]+?)(?:\s*\|\s*bot:|$)`)
	botScanPattern  = regexp.MustCompile(`(?i)bot:\s*([^|]+?)(?:\s*\|\s*user:|$)`)
)

// Extract returns the ordered, deduplicated utterances of one speaker from a
// canonical transcript. It tolerates raw un-reconstructed strings too, since
// upstream rows occasionally skip reconstruction.
//
// Strategy cascade, first match wins:
//  1. multiple dialogues joined with " || ": extract from each
//  2. single dialogue with " | " separators: per-segment prefix match
//  3. a bare segment carrying this speaker's prefix
//  4. user role only: a bare bot reply, run through the inference rule table
//  5. last resort: regex scan for role markers
func Extract(transcript string, role Role) []string {
	trimmed := strings.TrimSpace(transcript)
	switch trimmed {
	case "", "nan", "None", "null":
		return nil
	}

	var utterances []string

	switch {
	case strings.Contains(trimmed, " || "):
		for _, dlg := range strings.Split(trimmed, " || ") {
			utterances = append(utterances, segmentUtterances(dlg, role)...)
		}
	case strings.Contains(trimmed, " | "):
		utterances = segmentUtterances(trimmed, role)
	case prefixFor(trimmed, role) != "":
		if rest := stripPrefix(trimmed, prefixFor(trimmed, role)); rest != "" {
			utterances = append(utterances, rest)
		}
	case role == RoleUser && prefixFor(trimmed, RoleBot) != "":
		if inferred := InferQuestion(trimmed); inferred != "" {
			utterances = append(utterances, inferred)
		}
	default:
		pattern := userScanPattern
		if role == RoleBot {
			pattern = botScanPattern
		}
		for _, match := range pattern.FindAllStringSubmatch(trimmed, -1) {
			if u := strings.TrimSpace(match[1]); u != "" {
				utterances = append(utterances, u)
			}
		}
	}

	return Dedup(utterances)
}

// Join renders an utterance list in the single-dialogue form.
func Join(utterances []string) string {
	return strings.Join(utterances, " | ")
}

// ExtractJoined is Extract followed by Join; it feeds the
// pregunta_conversacion column directly.
func ExtractJoined(transcript string, role Role) string {
	return Join(Extract(transcript, role))
}

// Dedup removes exact-string duplicates preserving first-occurrence order.
func Dedup(utterances []string) []string {
	if len(utterances) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(utterances))
	out := make([]string, 0, len(utterances))
	for _, u := range utterances {
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// segmentUtterances splits one dialogue on " | " and collects the segments
// prefixed for the requested role.
func segmentUtterances(dlg string, role Role) []string {
	var out []string
	for _, segment := range strings.Split(dlg, " | ") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		if prefix := prefixFor(segment, role); prefix != "" {
			if rest := stripPrefix(segment, prefix); rest != "" {
				out = append(out, rest)
			}
		}
	}
	return out
}

// prefixFor returns the speaker prefix found at the start of the segment for
// the given role, or "".
func prefixFor(segment string, role Role) string {
	prefixes := userPrefixes
	if role == RoleBot {
		prefixes = botPrefixes
	}
	lower := strings.ToLower(segment)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p) {
			return p
		}
	}
	return ""
}

func stripPrefix(segment, prefix string) string {
	return strings.TrimSpace(segment[len(prefix):])
}
