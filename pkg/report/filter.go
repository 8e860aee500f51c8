package report

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/otherjamesbrown/convrep/pkg/dialogue"
	"github.com/otherjamesbrown/convrep/pkg/record"
)

// DefaultStartDate is the inclusive lower bound of the date window when the
// configuration does not override it.
var DefaultStartDate = time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC)

// excludedLocations matches locations outside the reporting scope. Applied to
// the diacritic-folded location so "Medellín" and "Medellin" both match.
var excludedLocations = regexp.MustCompile(`(?i)(mexico|medell|cali|barranquilla|cartagena|potosi|valle|antioquia)`)

// dateLayouts tried in order when parsing creation timestamps.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"2006/01/02",
}

// outputDateLayout is the DD/MM/YYYY rendering of surviving dates.
const outputDateLayout = "02/01/2006"

// FilterOptions parameterizes the filter stage. The zero value uses the
// package defaults with "today" evaluated at call time.
type FilterOptions struct {
	StartDate time.Time
	Today     time.Time
}

func (o FilterOptions) withDefaults() FilterOptions {
	if o.StartDate.IsZero() {
		o.StartDate = DefaultStartDate
	}
	if o.Today.IsZero() {
		o.Today = time.Now().UTC()
	}
	return o
}

// Normalize turns merged records into flat rows and applies the inclusion
// policy:
//
//   - user data is parsed into nombre and location (ciudad, with gerencia as
//     fallback key, parenthetical suffixes stripped)
//   - the conversation field is reconstructed into its canonical transcript
//   - empty names backfill to the anonymous default
//   - rows whose location matches the exclusion list are dropped
//     (diacritic-insensitive substring match)
//   - empty locations backfill to the canonical default
//   - creation dates inside [StartDate, Today] survive and render DD/MM/YYYY;
//     absent or unparseable dates survive as "Sin fecha"; parseable dates
//     outside the window drop the row
func Normalize(records []MergedRecord, opts FilterOptions) []Row {
	opts = opts.withDefaults()

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		nombre, location := parseUserData(rec.UserData)
		if nombre == "" || nombre == "nan" {
			nombre = DefaultName
		}

		if location != "" && excludedLocations.MatchString(foldDiacritics(location)) {
			continue
		}
		if location == "" {
			location = DefaultLocation
		}

		fecha, inWindow := normalizeDate(rec.CreatedAt, opts)
		if !inWindow {
			continue
		}

		rows = append(rows, Row{
			UsuarioID:                rec.UsuarioID,
			Nombre:                   nombre,
			Gerencia:                 location,
			Ciudad:                   location,
			FechaPrimeraConversacion: fecha,
			ConversacionCompleta:     dialogue.Reconstruct(rec.Conversation),
			FeedbackTotal:            rec.Feedback,
		})
	}
	return rows
}

// normalizeDate renders a surviving date as DD/MM/YYYY, or NoDate for
// null-passthrough. The second return is false when a parseable date falls
// outside the window.
func normalizeDate(raw string, opts FilterOptions) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(trimmed) {
	case "", "nan", "none", "null":
		return NoDate, true
	}

	parsed, ok := parseDate(trimmed)
	if !ok {
		return NoDate, true
	}

	day := parsed.Truncate(24 * time.Hour)
	start := opts.StartDate.Truncate(24 * time.Hour)
	end := opts.Today.Truncate(24 * time.Hour)
	if day.Before(start) || day.After(end) {
		return "", false
	}
	return parsed.Format(outputDateLayout), true
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseUserData extracts display name and location from a deserialized user
// data value: a map, or a JSON/literal string encoding one.
func parseUserData(v any) (nombre, location string) {
	switch data := v.(type) {
	case map[string]any:
		return userDataFields(data)
	case string:
		trimmed := strings.TrimSpace(data)
		switch strings.ToLower(trimmed) {
		case "", "nan", "none", "null":
			return "", ""
		}
		parsed, err := record.ParseLoose(trimmed)
		if err != nil {
			return "", ""
		}
		if m, ok := parsed.(map[string]any); ok {
			return userDataFields(m)
		}
	}
	return "", ""
}

func userDataFields(m map[string]any) (nombre, location string) {
	nombre = strings.TrimSpace(record.Coerce(m["nombre"]))

	location = strings.TrimSpace(record.Coerce(m["ciudad"]))
	if location == "" {
		location = strings.TrimSpace(record.Coerce(m["gerencia"]))
	}
	// "Bogotá (Chapinero)" reports as "Bogotá".
	if open := strings.Index(location, "("); open >= 0 && strings.Contains(location, ")") {
		location = strings.TrimSpace(location[:open])
	}
	return nombre, location
}

var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldDiacritics(s string) string {
	folded, _, err := transform.String(diacriticFolder, s)
	if err != nil {
		return s
	}
	return folded
}
