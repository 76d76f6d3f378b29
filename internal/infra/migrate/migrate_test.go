package migrate

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected file %s", name)
		}
	}
	require.Equal(t, ups, downs)
}

func TestUserAccountReferencesEmployee(t *testing.T) {
	body, err := fs.ReadFile(migrationsFS, "migrations/0002_user_account.up.sql")
	require.NoError(t, err)
	require.Contains(t, string(body), "REFERENCES employee (id) ON DELETE CASCADE")
	require.Contains(t, string(body), "UNIQUE INDEX")
}
