// Package report merges, filters, and aggregates conversation records into
// the fixed 12-column per-user tabular schema, and renders the CSV and
// manifest artifacts consumed by the BI ingestion.
package report

// Columns is the required output schema, in exact order. The artifact always
// carries exactly these columns; missing source fields surface as empty
// strings, never as absent columns.
var Columns = []string{
	"usuario_id",
	"nombre",
	"gerencia",
	"ciudad",
	"fecha_primera_conversacion",
	"numero_conversaciones",
	"conversacion_completa",
	"feedback_total",
	"numero_feedback",
	"pregunta_conversacion",
	"feedback",
	"respuesta_feedback",
}

// Fallback values synthesized for missing source data.
const (
	// DefaultName fills empty display names before aggregation.
	DefaultName = "Usuario Anónimo"

	// DefaultLocation is the canonical location backfill applied by the
	// filter stage.
	DefaultLocation = "Bogotá"

	// DefaultLocationAggregate marks identities where no source row carried
	// any location at all, distinguishable from the parse-time backfill.
	DefaultLocationAggregate = "Bogotá (no especificada)"

	// NoDate marks rows whose creation date was absent or unparseable.
	NoDate = "Sin fecha"
)

// Row is one flat 12-column record. Before aggregation there is one Row per
// conversation record; after aggregation, one per distinct usuario_id.
type Row struct {
	UsuarioID                string
	Nombre                   string
	Gerencia                 string
	Ciudad                   string
	FechaPrimeraConversacion string
	NumeroConversaciones     int
	ConversacionCompleta     string
	FeedbackTotal            string
	NumeroFeedback           int
	PreguntaConversacion     string
	Feedback                 string
	RespuestaFeedback        string
}

// Record renders the row as CSV fields in schema order.
func (r Row) Record() []string {
	return []string{
		r.UsuarioID,
		r.Nombre,
		r.Gerencia,
		r.Ciudad,
		r.FechaPrimeraConversacion,
		itoa(r.NumeroConversaciones),
		r.ConversacionCompleta,
		r.FeedbackTotal,
		itoa(r.NumeroFeedback),
		r.PreguntaConversacion,
		r.Feedback,
		r.RespuestaFeedback,
	}
}
