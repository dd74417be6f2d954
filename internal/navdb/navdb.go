// Package navdb records scan and path activity to a local sqlite database
// for later replay and tuning analysis.
package navdb

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/navcore/internal/models"
)

type NavDB struct {
	*sql.DB
}

//go:embed schema.sql
var schemaSQL string

// NewNavDB opens (creating if needed) the recorder database at path.
func NewNavDB(path string) (*NavDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(schemaSQL)
	if err != nil {
		return nil, err
	}

	log.Println("initialized navigation recorder schema")

	return &NavDB{db}, nil
}

// StartSession creates a session record and returns its id.
func (ndb *NavDB) StartSession(sensorModel, device, notes string) (string, error) {
	id := uuid.New().String()
	query := `
		INSERT INTO sessions (id, sensor_model, device, notes)
		VALUES (?, ?, ?, ?)
	`

	_, err := ndb.Exec(query, id, sensorModel, device, notes)
	if err != nil {
		return "", fmt.Errorf("failed to start session: %v", err)
	}

	return id, nil
}

// EndSession stamps the session's end time.
func (ndb *NavDB) EndSession(sessionID string) error {
	query := `
		UPDATE sessions SET end_timestamp = UNIXEPOCH('subsec') WHERE id = ?
	`

	_, err := ndb.Exec(query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to end session: %v", err)
	}

	return nil
}

// RecordScan stores one completed-rotation publication.
func (ndb *NavDB) RecordScan(sessionID string, stampNs int64, pointCount int, speedDegPerSec float64) error {
	query := `
		INSERT INTO scans (session_id, stamp_ns, point_count, speed_deg_per_sec)
		VALUES (?, ?, ?, ?)
	`

	_, err := ndb.Exec(query, sessionID, stampNs, pointCount, speedDegPerSec)
	if err != nil {
		return fmt.Errorf("failed to insert scan: %v", err)
	}

	return nil
}

// RecordPath stores one computed path as a JSON pose array.
func (ndb *NavDB) RecordPath(sessionID string, stampNs int64, path []models.Pose) error {
	poses, err := json.Marshal(path)
	if err != nil {
		return fmt.Errorf("failed to encode path: %v", err)
	}

	query := `
		INSERT INTO paths (session_id, stamp_ns, pose_count, poses)
		VALUES (?, ?, ?, ?)
	`

	_, err = ndb.Exec(query, sessionID, stampNs, len(path), string(poses))
	if err != nil {
		return fmt.Errorf("failed to insert path: %v", err)
	}

	return nil
}

// ScanCount returns the number of scans recorded for a session.
func (ndb *NavDB) ScanCount(sessionID string) (int, error) {
	var count int
	err := ndb.QueryRow(`SELECT COUNT(*) FROM scans WHERE session_id = ?`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count scans: %v", err)
	}
	return count, nil
}

// LastPath returns the most recently recorded path for a session, or nil
// when none exists.
func (ndb *NavDB) LastPath(sessionID string) ([]models.Pose, error) {
	var poses string
	err := ndb.QueryRow(`
		SELECT poses FROM paths WHERE session_id = ? ORDER BY id DESC LIMIT 1
	`, sessionID).Scan(&poses)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read path: %v", err)
	}

	var path []models.Pose
	if err := json.Unmarshal([]byte(poses), &path); err != nil {
		return nil, fmt.Errorf("failed to decode path: %v", err)
	}
	return path, nil
}
