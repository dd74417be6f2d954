package navdb

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/navcore/internal/models"
	"github.com/banshee-data/navcore/internal/testutil"
)

func openTestDB(t *testing.T) *NavDB {
	t.Helper()
	db, err := NewNavDB(testutil.TempDBPath(t))
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSessionLifecycle(t *testing.T) {
	db := openTestDB(t)

	id, err := db.StartSession("ld19", "/dev/ttyUSB0", "bench run")
	testutil.AssertNoError(t, err)
	if id == "" {
		t.Fatal("StartSession returned an empty id")
	}

	var model, device, notes string
	var end *float64
	err = db.QueryRow(`
		SELECT sensor_model, device, notes, end_timestamp FROM sessions WHERE id = ?
	`, id).Scan(&model, &device, &notes, &end)
	testutil.AssertNoError(t, err)
	if model != "ld19" || device != "/dev/ttyUSB0" || notes != "bench run" {
		t.Errorf("session row = %q %q %q", model, device, notes)
	}
	if end != nil {
		t.Error("new session already has an end timestamp")
	}

	testutil.AssertNoError(t, db.EndSession(id))
	err = db.QueryRow(`SELECT end_timestamp FROM sessions WHERE id = ?`, id).Scan(&end)
	testutil.AssertNoError(t, err)
	if end == nil {
		t.Error("ended session has no end timestamp")
	}
}

func TestRecordScanAndCount(t *testing.T) {
	db := openTestDB(t)
	id, err := db.StartSession("g2", "/dev/ttyUSB1", "")
	testutil.AssertNoError(t, err)

	for i := 0; i < 3; i++ {
		testutil.AssertNoError(t, db.RecordScan(id, int64(1000+i), 360, 1800))
	}

	count, err := db.ScanCount(id)
	testutil.AssertNoError(t, err)
	if count != 3 {
		t.Errorf("ScanCount = %d, want 3", count)
	}

	// Scans from another session must not leak into the count.
	other, err := db.StartSession("g2", "/dev/ttyUSB1", "")
	testutil.AssertNoError(t, err)
	count, err = db.ScanCount(other)
	testutil.AssertNoError(t, err)
	if count != 0 {
		t.Errorf("ScanCount for a fresh session = %d, want 0", count)
	}
}

func TestRecordPathRoundTrip(t *testing.T) {
	db := openTestDB(t)
	id, err := db.StartSession("ld19", "/dev/ttyUSB0", "")
	testutil.AssertNoError(t, err)

	first := []models.Pose{{X: 100, Y: 200}, {X: 300, Y: 400, Angle: 90}}
	second := []models.Pose{{X: 1, Y: 2}, {X: 3, Y: 4}, {X: 5, Y: 6, Angle: 180}}
	testutil.AssertNoError(t, db.RecordPath(id, 1000, first))
	testutil.AssertNoError(t, db.RecordPath(id, 2000, second))

	got, err := db.LastPath(id)
	testutil.AssertNoError(t, err)
	if diff := cmp.Diff(second, got); diff != "" {
		t.Errorf("LastPath mismatch (-want +got):\n%s", diff)
	}
}

func TestLastPathEmpty(t *testing.T) {
	db := openTestDB(t)
	id, err := db.StartSession("ld19", "/dev/ttyUSB0", "")
	testutil.AssertNoError(t, err)

	got, err := db.LastPath(id)
	testutil.AssertNoError(t, err)
	if got != nil {
		t.Errorf("LastPath on an empty session = %v, want nil", got)
	}
}
