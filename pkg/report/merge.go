package report

import (
	"strings"

	"github.com/otherjamesbrown/convrep/pkg/record"
)

// Attribute names on raw records.
const (
	AttrPartitionKey = "PK"
	AttrSortKey      = "SK"
	AttrConversation = "Conversation"
	AttrUserData     = "UserData"
	AttrFeedback     = "Feedback"
	AttrCreatedAt    = "CreatedAt"
)

// identityPrefix is stripped from partition keys to obtain usuario_id.
const identityPrefix = "USER#"

// RowKind classifies a raw record by its sort-key discriminator substring.
type RowKind int

const (
	RowOther RowKind = iota
	RowConversation
	RowFeedback
	RowRegister
)

// KindOf matches the sort key's discriminator, case-insensitive.
func KindOf(sortKey string) RowKind {
	upper := strings.ToUpper(sortKey)
	switch {
	case strings.Contains(upper, "CONVERSATION"):
		return RowConversation
	case strings.Contains(upper, "FEEDBACK"):
		return RowFeedback
	case strings.Contains(upper, "REGISTER"):
		return RowRegister
	}
	return RowOther
}

// MergedRecord is one conversation-bearing record with its feedback blob
// attached by identity.
type MergedRecord struct {
	UsuarioID string
	SortKey   string

	// Conversation keeps the wire encoding; the dialogue reconstructor
	// handles tagged and plain forms itself.
	Conversation any

	// UserData, CreatedAt, Feedback are deserialized.
	UserData  any
	CreatedAt string
	Feedback  string
}

// Merge joins conversation rows with feedback rows by partition key.
// Registration-marker rows are dropped. Feedback rows collapse into a
// per-identity map, last write wins in scan order; the ambiguity against
// first-write-wins is deliberate and pinned by tests. Rows that are neither
// conversation nor feedback pass through without an attached blob, so no
// identity present in the input disappears.
func Merge(items []map[string]any) []MergedRecord {
	feedbackByKey := make(map[string]string)
	var conversations []map[string]any
	var others []map[string]any

	for _, item := range items {
		sortKey := record.Coerce(record.Deserialize(item[AttrSortKey]))
		switch KindOf(sortKey) {
		case RowRegister:
			continue
		case RowFeedback:
			pk := record.Coerce(record.Deserialize(item[AttrPartitionKey]))
			feedbackByKey[pk] = record.Coerce(record.Deserialize(item[AttrFeedback]))
		case RowConversation:
			conversations = append(conversations, item)
		default:
			others = append(others, item)
		}
	}

	merged := make([]MergedRecord, 0, len(conversations)+len(others))
	for _, item := range conversations {
		pk := record.Coerce(record.Deserialize(item[AttrPartitionKey]))
		rec := newMergedRecord(item, pk)
		if blob, ok := feedbackByKey[pk]; ok {
			rec.Feedback = blob
		}
		merged = append(merged, rec)
	}
	for _, item := range others {
		pk := record.Coerce(record.Deserialize(item[AttrPartitionKey]))
		merged = append(merged, newMergedRecord(item, pk))
	}
	return merged
}

func newMergedRecord(item map[string]any, pk string) MergedRecord {
	return MergedRecord{
		UsuarioID:    IdentityKey(pk),
		SortKey:      record.Coerce(record.Deserialize(item[AttrSortKey])),
		Conversation: item[AttrConversation],
		UserData:     record.Deserialize(item[AttrUserData]),
		CreatedAt:    record.Coerce(record.Deserialize(item[AttrCreatedAt])),
		Feedback:     record.Coerce(record.Deserialize(item[AttrFeedback])),
	}
}

// IdentityKey derives usuario_id from a partition key by stripping the entity
// prefix.
func IdentityKey(partitionKey string) string {
	return strings.Replace(partitionKey, identityPrefix, "", 1)
}
