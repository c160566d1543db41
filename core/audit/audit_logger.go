package audit

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types recorded by the ledger.
const (
	EventCredit           = "WalletCredit"
	EventDebit            = "WalletDebit"
	EventDebitRejected    = "WalletDebitRejected"
	EventRollback         = "WalletRollback"
	EventSignatureInvalid = "SignatureVerification"
	EventKeyImported      = "SigningKeyImported"
)

// AuditEvent represents a balance mutation or verification event.
type AuditEvent struct {
	ID        string
	Timestamp time.Time
	EventType string
	EntityID  string // wallet id or tx hash
	Result    string // "success" or "failure"
	Reason    string
	Metadata  map[string]string
}

// AuditLogger is the interface for logging audit events.
type AuditLogger interface {
	LogEvent(event AuditEvent)
}

// Stamp fills ID and Timestamp when unset.
func Stamp(event AuditEvent) AuditEvent {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return event
}

// StdoutAuditLogger writes events through the standard logger.
type StdoutAuditLogger struct{}

func (l *StdoutAuditLogger) LogEvent(event AuditEvent) {
	event = Stamp(event)
	log.Printf("[AUDIT] %s [%s] Entity: %s, Result: %s, Reason: %s, Metadata: %+v",
		event.ID, event.EventType, event.EntityID, event.Result, event.Reason, event.Metadata)
}

// NewStdoutAuditLogger returns a new StdoutAuditLogger.
func NewStdoutAuditLogger() AuditLogger {
	return &StdoutAuditLogger{}
}

// MemoryAuditLogger keeps events in memory; used by tests and the CLI.
type MemoryAuditLogger struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (l *MemoryAuditLogger) LogEvent(event AuditEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, Stamp(event))
}

// Events returns a copy of every recorded event.
func (l *MemoryAuditLogger) Events() []AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]AuditEvent(nil), l.events...)
}
