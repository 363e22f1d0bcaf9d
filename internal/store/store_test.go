package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/deskclock/internal/alarm"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	var count int
	if err := s2.db.QueryRow("SELECT COUNT(*) FROM alarm_templates").Scan(&count); err != nil {
		t.Errorf("query failed: %v", err)
	}
	if count != 2 {
		t.Errorf("reopen changed seeded alarms: got %d rows, want 2", count)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{alarm.AlarmsTable, alarm.InstancesTable} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpen_SeedsDefaultAlarms(t *testing.T) {
	s := createTestStore(t, WithSeedDefaults(true))

	alarms, err := s.Alarms(context.Background(), "")
	if err != nil {
		t.Fatalf("Alarms() failed: %v", err)
	}
	if len(alarms) != 2 {
		t.Fatalf("got %d seeded alarms, want 2", len(alarms))
	}

	weekday, weekend := alarms[0], alarms[1]
	if weekday.Hour != 8 || weekday.Minutes != 30 || weekday.DaysOfWeek != alarm.Workdays || weekday.Enabled {
		t.Errorf("unexpected weekday alarm: %+v", weekday)
	}
	if weekend.Hour != 9 || weekend.Minutes != 0 || weekend.DaysOfWeek != alarm.Weekend || weekend.Enabled {
		t.Errorf("unexpected weekend alarm: %+v", weekend)
	}
}

func TestOpen_WithoutSeed(t *testing.T) {
	s := createTestStore(t)

	n, err := s.Count(context.Background(), alarm.AlarmsTable)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("got %d alarms, want 0", n)
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestClose_MultipleCalls(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("first Close() failed: %v", err)
	}

	// Second close must not panic
	_ = s.Close()
}

func TestDB_ReturnsUnderlyingConnection(t *testing.T) {
	s := createTestStore(t)

	db := s.DB()
	if db == nil {
		t.Fatal("DB() returned nil")
	}
	if err := db.Ping(); err != nil {
		t.Errorf("DB() connection not usable: %v", err)
	}
}

func TestVersion(t *testing.T) {
	s := createTestStore(t)

	v, err := s.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() failed: %v", err)
	}
	if v != CurrentVersion {
		t.Errorf("Version() = %d, want %d", v, CurrentVersion)
	}
}

func TestCount_UnknownTable(t *testing.T) {
	s := createTestStore(t)

	if _, err := s.Count(context.Background(), "sqlite_master"); err == nil {
		t.Error("expected error for unknown table")
	}
}

// Pragma tests

func TestPragma_JournalMode(t *testing.T) {
	s := createTestStore(t)

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
}

func TestPragma_Synchronous(t *testing.T) {
	s := createTestStore(t)

	// NORMAL = 1
	if err := s.verifyPragma("synchronous", "1"); err != nil {
		t.Error(err)
	}
}

func TestPragma_BusyTimeout(t *testing.T) {
	s := createTestStore(t)

	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
}

func TestPragma_ForeignKeys(t *testing.T) {
	s := createTestStore(t)

	// ON = 1
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
}

// Schema tests

func TestSchema_TemplatesTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, alarm.AlarmsTable)
	if len(columns) != len(alarm.AlarmColumns) {
		t.Errorf("alarm_templates has %d columns, want %d: %v", len(columns), len(alarm.AlarmColumns), columns)
	}
	for _, col := range alarm.AlarmColumns {
		if !contains(columns, col) {
			t.Errorf("alarm_templates table missing column %q", col)
		}
	}
}

func TestSchema_InstancesTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, alarm.InstancesTable)
	for _, col := range alarm.InstanceColumns {
		if !contains(columns, col) {
			t.Errorf("alarm_instances table missing column %q", col)
		}
	}
}

func TestSchema_InstancesIndex(t *testing.T) {
	s := createTestStore(t)

	indexes := getTableIndexes(t, s.db, alarm.InstancesTable)
	if !contains(indexes, "alarm_instances_alarm_id") {
		t.Error("alarm_instances table missing index alarm_instances_alarm_id")
	}
}

// Constraint tests

func TestConstraint_InstanceForeignKey(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`
		INSERT INTO alarm_instances (year, month, day, hour, minutes, alarm_id)
		VALUES (2026, 10, 16, 8, 30, 999)
	`)
	if err == nil {
		t.Error("expected foreign key violation for missing alarm")
	}
}

func TestConstraint_CascadeDelete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := insertTestAlarm(t, s, 7, 0)
	inst := a.CreateInstanceAfter(testNow)
	if err := s.AddInstance(ctx, &inst); err != nil {
		t.Fatalf("AddInstance() failed: %v", err)
	}

	if _, err := s.DeleteAlarm(ctx, a.ID); err != nil {
		t.Fatalf("DeleteAlarm() failed: %v", err)
	}

	n, err := s.Count(ctx, alarm.InstancesTable)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("got %d instances after deleting their alarm, want 0", n)
	}
}

func getTableColumns(t *testing.T, db *sqlx.DB, table string) []string {
	t.Helper()

	var columns []string
	if err := db.Select(&columns, "SELECT name FROM pragma_table_info(?)", table); err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sqlx.DB, table string) []string {
	t.Helper()

	var indexes []string
	err := db.Select(&indexes, "SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	return indexes
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
