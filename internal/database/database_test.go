package database

import "testing"

func TestEnsureDatabaseSkipsNonURLDSN(t *testing.T) {
	t.Parallel()

	for _, dsn := range []string{
		"host=localhost user=postgres dbname=shafran sslmode=disable",
		"postgres://postgres@localhost:5432",
		"postgres://postgres@localhost:5432/",
	} {
		if err := ensureDatabase(dsn); err != nil {
			t.Errorf("ensureDatabase(%q) = %v, want nil", dsn, err)
		}
	}
}
