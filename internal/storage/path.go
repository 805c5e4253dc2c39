package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// SnapshotKey builds the object key a table snapshot is uploaded
// under: datasets/<table>/date=YYYY-MM-DD/<snapshot-id>.parquet.
func SnapshotKey(table string, day time.Time, snapshotID string) (string, error) {
	if err := validatePathComponent(table, "table name"); err != nil {
		return "", err
	}
	if err := validatePathComponent(snapshotID, "snapshot id"); err != nil {
		return "", err
	}

	ts := day.UTC()
	return path.Join(
		"datasets",
		table,
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		snapshotID+".parquet",
	), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
