package core

import "time"

// audit outcomes
const (
	AuditSucceeded = "succeeded"
	AuditFailed    = "failed"
)

type (
	AuditEntry struct {
		Action    string // eg. "enrollment.create"
		ActorID   int
		Subject   string // eg. "course:12"
		Outcome   string
		ErrorKind string
		Message   string
		Details   map[string]interface{}
		At        time.Time // UTC
	}

	// Auditor records audit entries on a best-effort basis.
	// Record must not block its caller on slow storage and never reports failures.
	Auditor interface {
		Record(entry AuditEntry)
	}
)
