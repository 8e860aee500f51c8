// Package feedback interprets raw feedback blobs: JSON, Python-literal, or
// pre-escaped strings, possibly pipe-concatenated from several source rows.
// Classification and counting work by pattern search over the concatenated
// text rather than structural parsing, because the blobs routinely fail to
// parse as a whole; structured parsing is the fallback, not the primary path.
package feedback

import (
	"regexp"
	"strings"

	"github.com/otherjamesbrown/convrep/pkg/record"
)

// Classification labels for a feedback blob.
const (
	TypeLike    = "like"
	TypeDislike = "dislike"
	TypeMixed   = "mixed"
)

var (
	typeSingleQuoted = regexp.MustCompile(`'type':\s*'([^']*)'`)
	typeDoubleQuoted = regexp.MustCompile(`"type":\s*"([^"]*)"`)

	commentSingleQuoted = regexp.MustCompile(`'comment':\s*'([^']*)'`)
	commentDoubleQuoted = regexp.MustCompile(`"comment":\s*"([^"]*)"`)
	optionSingleQuoted  = regexp.MustCompile(`'option':\s*'([^']*)'`)
	optionDoubleQuoted  = regexp.MustCompile(`"option":\s*"([^"]*)"`)
)

// Classify labels a feedback blob as like, dislike, mixed, or "" when no type
// tag is found. Type tags are searched anywhere in the blob in both quote
// styles; when none match, the blob (or each pipe-separated part) is parsed
// structurally as a last attempt.
func Classify(blob string) string {
	trimmed := normalize(blob)
	if trimmed == "" {
		return ""
	}

	var hasLike, hasDislike bool
	mark := func(tag string) {
		switch strings.ToLower(strings.TrimSpace(tag)) {
		case TypeLike:
			hasLike = true
		case TypeDislike:
			hasDislike = true
		}
	}

	for _, m := range typeSingleQuoted.FindAllStringSubmatch(trimmed, -1) {
		mark(m[1])
	}
	for _, m := range typeDoubleQuoted.FindAllStringSubmatch(trimmed, -1) {
		mark(m[1])
	}

	if !hasLike && !hasDislike {
		for _, tag := range structuredTypes(trimmed) {
			mark(tag)
		}
	}

	switch {
	case hasLike && hasDislike:
		return TypeMixed
	case hasLike:
		return TypeLike
	case hasDislike:
		return TypeDislike
	}
	return ""
}

// structuredTypes parses the blob as JSON/literal and collects "type" values
// from a dict or a list of dicts.
func structuredTypes(blob string) []string {
	parsed, err := record.ParseLoose(blob)
	if err != nil {
		return nil
	}

	var tags []string
	collect := func(v any) {
		m, ok := v.(map[string]any)
		if !ok {
			return
		}
		if tag, ok := m["type"]; ok {
			tags = append(tags, record.Coerce(tag))
		}
	}

	switch v := parsed.(type) {
	case []any:
		for _, item := range v {
			collect(item)
		}
	case map[string]any:
		collect(v)
	}
	return tags
}

// Count returns the number of like/dislike events detected in a blob.
// Literal marker counting first, then a per-pipe-segment rescan, and finally
// the legacy heuristic: a non-empty blob longer than 10 characters that
// matched nothing still counts as exactly one event.
func Count(blob string) int {
	trimmed := normalize(blob)
	if trimmed == "" {
		return 0
	}

	lower := strings.ToLower(trimmed)
	total := countMarkers(lower, TypeLike) + countMarkers(lower, TypeDislike)

	if total == 0 && strings.Contains(trimmed, "|") {
		for _, part := range strings.Split(trimmed, "|") {
			partLower := strings.ToLower(strings.TrimSpace(part))
			if countMarkers(partLower, TypeLike) > 0 {
				total++
			} else if countMarkers(partLower, TypeDislike) > 0 {
				total++
			}
		}
	}

	if total == 0 && len(trimmed) > 10 {
		total = 1
	}
	return total
}

// countMarkers counts type-tag occurrences in both quote styles, with and
// without the space a JSON encoder omits.
func countMarkers(lower, tag string) int {
	return strings.Count(lower, "'type': '"+tag+"'") +
		strings.Count(lower, `"type": "`+tag+`"`) +
		strings.Count(lower, `"type":"`+tag+`"`)
}

// Responses extracts comment and option values from a blob, joined with " | "
// and deduplicated preserving first-seen order.
func Responses(blob string) string {
	trimmed := normalize(blob)
	if trimmed == "" {
		return ""
	}

	var values []string
	add := func(v string) {
		cleaned := strings.TrimSpace(v)
		switch strings.ToLower(cleaned) {
		case "", "none", "null":
			return
		}
		values = append(values, cleaned)
	}

	for _, re := range []*regexp.Regexp{commentSingleQuoted, commentDoubleQuoted, optionSingleQuoted, optionDoubleQuoted} {
		for _, m := range re.FindAllStringSubmatch(trimmed, -1) {
			add(m[1])
		}
	}

	if len(values) == 0 {
		parts := []string{trimmed}
		if strings.Contains(trimmed, "|") {
			parts = strings.Split(trimmed, "|")
		}
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if !strings.HasPrefix(part, "{") || !strings.HasSuffix(part, "}") {
				continue
			}
			parsed, err := record.ParseLoose(part)
			if err != nil {
				continue
			}
			if m, ok := parsed.(map[string]any); ok {
				if v, found := m["comment"]; found {
					add(record.Coerce(v))
				}
				if v, found := m["option"]; found {
					add(record.Coerce(v))
				}
			}
		}
	}

	return strings.Join(dedup(values), " | ")
}

// JoinBlobs concatenates feedback blobs from several source rows with the
// distinguishing double-pipe separator, skipping empty and placeholder
// values.
func JoinBlobs(blobs []string) string {
	var kept []string
	for _, b := range blobs {
		switch strings.TrimSpace(b) {
		case "", "nan", "None":
			continue
		}
		kept = append(kept, b)
	}
	return strings.Join(kept, " || ")
}

func normalize(blob string) string {
	trimmed := strings.TrimSpace(blob)
	switch strings.ToLower(trimmed) {
	case "", "nan", "none", "null":
		return ""
	}
	return trimmed
}

func dedup(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
