package auditsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/aprende/academia/core"
)

const writeTimeout = 5 * time.Second

type auditRow struct {
	ID        string    `db:"id"`
	Action    string    `db:"action"`
	ActorID   int       `db:"actor_id"`
	Subject   string    `db:"subject"`
	Outcome   string    `db:"outcome"`
	ErrorKind string    `db:"error_kind"`
	Message   string    `db:"message"`
	Details   string    `db:"details"`
	CreatedAt time.Time `db:"created_at"`
}

// DBAuditor writes audit entries to the audit_log table, each in its own goroutine and outside
// any caller transaction. Failures are logged and dropped.
type DBAuditor struct {
	db     *sqlx.DB
	logger core.Logger
	wg     sync.WaitGroup
}

var _ core.Auditor = (*DBAuditor)(nil)

func NewDBAuditor(db *sqlx.DB, logger core.Logger) *DBAuditor {
	return &DBAuditor{db: db, logger: logger}
}

func (a *DBAuditor) Record(entry core.AuditEntry) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.write(entry); err != nil {
			a.logger.Error(fmt.Sprintf("auditsvc: %v", err), err, entry)
		}
	}()
}

// Wait blocks until every pending entry has been written or dropped.
func (a *DBAuditor) Wait() {
	a.wg.Wait()
}

func (a *DBAuditor) write(entry core.AuditEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return errors.Wrap(err, "encoding audit details")
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	q := `
		INSERT INTO audit_log (id, action, actor_id, subject, outcome, error_kind, message, details, created_at)
		VALUES (:id, :action, :actor_id, :subject, :outcome, :error_kind, :message, :details, :created_at)`
	_, err = a.db.NamedExecContext(ctx, q, auditRow{
		ID:        uuid.New().String(),
		Action:    entry.Action,
		ActorID:   entry.ActorID,
		Subject:   entry.Subject,
		Outcome:   entry.Outcome,
		ErrorKind: entry.ErrorKind,
		Message:   entry.Message,
		Details:   string(details),
		CreatedAt: entry.At,
	})
	return errors.Wrap(err, "inserting audit entry")
}
