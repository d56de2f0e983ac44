package domain

import "context"

// Entry is the write shape for a new audit record. Empty optional fields
// are stored as NULL.
type Entry struct {
	ActorType  ActorType
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
	IPAddress  string
}

// Service records operator actions and serves the audit trail.
type Service interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter ListFilter) ([]*AuditLog, error)
}
