// Package document defines the dynamic document model flowing
// through the gateway and the system-reserved fields on it.
package document

import "time"

// System-reserved field names.
const (
	FieldID            = "_id"
	FieldCreatedAt     = "_createdAt"
	FieldUpdatedAt     = "_updatedAt"
	FieldLastRequestID = "_lastRequestId"
	FieldSequence      = "sequence"

	// Sub-entity technical fields.
	FieldMyID      = "myId"
	FieldIsDeleted = "isDeleted"
	FieldIsDelete  = "isDelete"
)

// Document is a JSON object as it travels through the pipeline.
type Document = map[string]any

// AuditFields are managed by the gateway and never writable by
// clients.
var AuditFields = []string{FieldCreatedAt, FieldUpdatedAt, FieldLastRequestID}

// ClientAuditFields reports which audit fields the client supplied.
// Used by write validation to reject tampering attempts explicitly.
func ClientAuditFields(doc Document) []string {
	var present []string
	for _, field := range AuditFields {
		if _, ok := doc[field]; ok {
			present = append(present, field)
		}
	}
	return present
}

// StripAudit removes all audit fields from doc in place.
func StripAudit(doc Document) {
	for _, field := range AuditFields {
		delete(doc, field)
	}
}

// InjectCreateAudit stamps a freshly created document. Created and
// updated timestamps are identical on create.
func InjectCreateAudit(doc Document, now time.Time, requestID string) {
	doc[FieldCreatedAt] = now
	doc[FieldUpdatedAt] = now
	doc[FieldLastRequestID] = requestID
}

// InjectUpdateAudit stamps an updated document, preserving its
// original _createdAt.
func InjectUpdateAudit(doc Document, now time.Time, requestID string) {
	doc[FieldUpdatedAt] = now
	doc[FieldLastRequestID] = requestID
}

// Clone returns a shallow-plus-one-level copy of doc: nested maps and
// slices are copied one level deep, enough for the merge pipeline to
// work on its own copy of sub-entity lists.
func Clone(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		switch tv := v.(type) {
		case map[string]any:
			inner := make(map[string]any, len(tv))
			for ik, iv := range tv {
				inner[ik] = iv
			}
			out[k] = inner
		case []any:
			inner := make([]any, len(tv))
			copy(inner, tv)
			out[k] = inner
		default:
			out[k] = v
		}
	}
	return out
}
