package auditsvc

import (
	"fmt"

	"github.com/aprende/academia/core"
)

// LoggerAuditor writes audit entries to a logger. Used when no database is configured.
type LoggerAuditor struct {
	logger core.Logger
}

var _ core.Auditor = (*LoggerAuditor)(nil)

func NewLoggerAuditor(logger core.Logger) *LoggerAuditor {
	return &LoggerAuditor{logger: logger}
}

func (a *LoggerAuditor) Record(entry core.AuditEntry) {
	msg := fmt.Sprintf("audit: %s %s by %d: %s", entry.Action, entry.Subject, entry.ActorID, entry.Outcome)
	if entry.ErrorKind != "" {
		msg += fmt.Sprintf(" (%s: %s)", entry.ErrorKind, entry.Message)
	}
	a.logger.Info(msg, entry.Details)
}
