package report

import (
	"strings"

	"github.com/otherjamesbrown/convrep/pkg/dialogue"
	"github.com/otherjamesbrown/convrep/pkg/feedback"
)

// CompleteRows fills the derived per-row columns from the columns the filter
// stage produced: the message count from the transcript, the extracted user
// questions, and the feedback event count.
func CompleteRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, row := range rows {
		row.NumeroConversaciones = dialogue.CountMessages(row.ConversacionCompleta)
		row.PreguntaConversacion = dialogue.ExtractJoined(row.ConversacionCompleta, dialogue.RoleUser)
		row.NumeroFeedback = feedback.Count(row.FeedbackTotal)
		out[i] = row
	}
	return out
}

// Aggregate collapses completed rows into one row per usuario_id, preserving
// first-seen identity order:
//
//   - nombre keeps the first value that is not the anonymous backfill
//   - gerencia and ciudad keep the first real location, with the aggregate
//     default marking identities that never carried one
//   - fecha_primera_conversacion keeps the first value
//   - numero_conversaciones and numero_feedback sum
//   - transcript, feedback, and question columns join with " || ", skipping
//     empty and placeholder values
//
// After grouping, the feedback classification and responses are recomputed
// over the joined feedback so mixed signals across records surface correctly.
func Aggregate(rows []Row) []Row {
	var order []string
	groups := make(map[string][]Row)
	for _, row := range rows {
		if _, seen := groups[row.UsuarioID]; !seen {
			order = append(order, row.UsuarioID)
		}
		groups[row.UsuarioID] = append(groups[row.UsuarioID], row)
	}

	out := make([]Row, 0, len(order))
	for _, id := range order {
		group := groups[id]

		agg := Row{
			UsuarioID:                id,
			Nombre:                   firstPreferred(group, func(r Row) string { return r.Nombre }, DefaultName),
			Gerencia:                 firstPreferred(group, func(r Row) string { return r.Gerencia }, DefaultLocationAggregate),
			Ciudad:                   firstPreferred(group, func(r Row) string { return r.Ciudad }, DefaultLocationAggregate),
			FechaPrimeraConversacion: group[0].FechaPrimeraConversacion,
			ConversacionCompleta:     joinValues(group, func(r Row) string { return r.ConversacionCompleta }),
			FeedbackTotal:            joinValues(group, func(r Row) string { return r.FeedbackTotal }),
			PreguntaConversacion:     joinValues(group, func(r Row) string { return r.PreguntaConversacion }),
		}
		for _, row := range group {
			agg.NumeroConversaciones += row.NumeroConversaciones
			agg.NumeroFeedback += row.NumeroFeedback
		}

		agg.Feedback = feedback.Classify(agg.FeedbackTotal)
		agg.RespuestaFeedback = feedback.Responses(agg.FeedbackTotal)
		out = append(out, agg)
	}
	return out
}

// firstPreferred returns the first group value that is neither empty nor the
// default, falling back to the default itself.
func firstPreferred(group []Row, field func(Row) string, fallback string) string {
	for _, row := range group {
		v := strings.TrimSpace(field(row))
		if v != "" && v != fallback {
			return v
		}
	}
	return fallback
}

func joinValues(group []Row, field func(Row) string) string {
	var kept []string
	for _, row := range group {
		v := strings.TrimSpace(field(row))
		switch v {
		case "", "nan", "None":
			continue
		}
		kept = append(kept, v)
	}
	return strings.Join(kept, " || ")
}
