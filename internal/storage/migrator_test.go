package storage

import (
	"errors"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected []string
	}{
		{
			name:     "single statement",
			sql:      "CREATE TABLE test (id INT)",
			expected: []string{"CREATE TABLE test (id INT)"},
		},
		{
			name:     "multiple statements",
			sql:      "CREATE TABLE a (id INT); CREATE TABLE b (id INT)",
			expected: []string{"CREATE TABLE a (id INT)", "CREATE TABLE b (id INT)"},
		},
		{
			name: "comment lines dropped",
			sql: `-- Comment
CREATE TABLE a (id INT);
-- Another comment
CREATE TABLE b (id INT)`,
			expected: []string{"CREATE TABLE a (id INT)", "CREATE TABLE b (id INT)"},
		},
		{
			name:     "empty string",
			sql:      "",
			expected: nil,
		},
		{
			name:     "only whitespace",
			sql:      "   \n\t  ",
			expected: nil,
		},
		{
			name:     "trailing semicolon",
			sql:      "CREATE TABLE test (id INT);",
			expected: []string{"CREATE TABLE test (id INT)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitStatements(tt.sql)

			if len(result) != len(tt.expected) {
				t.Fatalf("splitStatements() returned %d statements, want %d\ngot: %v", len(result), len(tt.expected), result)
			}

			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("statement[%d] = %q, want %q", i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}

	if len(migrations) < 2 {
		t.Fatalf("got %d migrations, want at least 2", len(migrations))
	}

	if migrations[0].Version != 1 || migrations[0].Name != "create_alarm_logs" {
		t.Errorf("migration[0] = %d/%s, want 1/create_alarm_logs", migrations[0].Version, migrations[0].Name)
	}

	if migrations[1].Version != 2 || migrations[1].Name != "create_imports" {
		t.Errorf("migration[1] = %d/%s, want 2/create_imports", migrations[1].Version, migrations[1].Name)
	}

	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version <= migrations[i-1].Version {
			t.Errorf("migrations not sorted: %d after %d", migrations[i].Version, migrations[i-1].Version)
		}
	}

	for _, m := range migrations {
		if m.SQL == "" {
			t.Errorf("migration %d has empty SQL", m.Version)
		}
	}
}

func TestStorageErrorWrapping(t *testing.T) {
	err := WrapBatchError("alarm_logs", errors.New("network down"), 3)

	if !IsBatchInsertError(err) {
		t.Error("expected batch insert error classification")
	}

	var serr *StorageError
	if !errors.As(err, &serr) {
		t.Fatal("expected StorageError")
	}
	if serr.Table != "alarm_logs" || serr.Retries != 3 {
		t.Errorf("StorageError = %+v, want table alarm_logs retries 3", serr)
	}

	connErr := WrapConnectionError("Ping", errors.New("refused"))
	if !IsConnectionError(connErr) {
		t.Error("expected connection error classification")
	}
	if IsBatchInsertError(connErr) {
		t.Error("connection error misclassified as batch insert error")
	}
}
