package agent

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Journal is the agent's local record of executed commands. A command already
// journaled is never executed twice, so a crash between executing and acking
// only re-sends the ack, not the effect.
type Journal struct {
	db *sql.DB
}

func NewJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}

	j := &Journal{db: db}
	if err := j.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal tables: %w", err)
	}
	return j, nil
}

func (j *Journal) initTables() error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS command_journal (
			command_id  TEXT PRIMARY KEY,
			session_id  INTEGER NOT NULL,
			type        TEXT NOT NULL,
			status      TEXT NOT NULL,
			executed_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_journal_session ON command_journal(session_id);
	`)
	return err
}

// Seen reports whether the command was already executed.
func (j *Journal) Seen(commandID string) (bool, error) {
	var exists bool
	err := j.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM command_journal WHERE command_id = ?)", commandID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check journal entry: %w", err)
	}
	return exists, nil
}

// Record journals a command execution. Recording the same command twice is a
// no-op.
func (j *Journal) Record(commandID string, sessionID int64, cmdType, status string) error {
	_, err := j.db.Exec(`
		INSERT INTO command_journal (command_id, session_id, type, status, executed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (command_id) DO NOTHING
	`, commandID, sessionID, cmdType, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record journal entry: %w", err)
	}
	return nil
}

// Count returns the number of journaled commands.
func (j *Journal) Count() (int, error) {
	var n int
	if err := j.db.QueryRow("SELECT COUNT(*) FROM command_journal").Scan(&n); err != nil {
		return 0, fmt.Errorf("count journal entries: %w", err)
	}
	return n, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}
