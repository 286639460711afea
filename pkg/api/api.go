// Package api defines the contracts for gateway responses.
// It decouples the wire structure from the internal pipeline types.
package api

// DocumentListResponse carries the documents matched by a read.
type DocumentListResponse struct {
	Data  []map[string]any `json:"data"`
	Count int              `json:"count"`
}

// SequenceResponse is a page of a sequence-based iteration.
type SequenceResponse struct {
	NextSequence int64            `json:"nextSequence"`
	Data         []map[string]any `json:"data"`
	HasMore      bool             `json:"hasMore"`
}

// CreateResponse reports the outcome of a create.
type CreateResponse struct {
	AffectedCount int      `json:"affectedCount"`
	InsertedIDs   []string `json:"insertedIds"`
	InsertedCount int      `json:"insertedCount"`
}

// UpdateResponse reports the outcome of an update.
type UpdateResponse struct {
	AffectedCount int `json:"affectedCount"`
	MatchedCount  int `json:"matchedCount"`
	ModifiedCount int `json:"modifiedCount"`
}

// DeleteResponse reports the outcome of a delete.
type DeleteResponse struct {
	AffectedCount int `json:"affectedCount"`
	DeletedCount  int `json:"deletedCount"`
}

// UpsertResponse reports the outcome of an upsert. DocumentID is set
// only when a new document was inserted; the counts only when an
// existing one was updated.
type UpsertResponse struct {
	WasInserted   bool   `json:"wasInserted"`
	DocumentID    string `json:"documentId,omitempty"`
	MatchedCount  *int   `json:"matchedCount,omitempty"`
	ModifiedCount *int   `json:"modifiedCount,omitempty"`
}

// ErrorResponse is the standardized error body.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}
