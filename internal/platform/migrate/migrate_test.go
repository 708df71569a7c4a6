package migrate

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDriverURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@localhost:5432/db?sslmode=disable", DriverURL("postgres://u:p@localhost:5432/db?sslmode=disable"))
	require.Equal(t, "pgx5://u@h/db", DriverURL("postgresql://u@h/db"))
	require.Equal(t, "pgx5://already", DriverURL("pgx5://already"))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "sql")
	require.NoError(t, err)
	ups, downs := 0, 0
	for _, entry := range entries {
		switch {
		case strings.HasSuffix(entry.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(entry.Name(), ".down.sql"):
			downs++
		}
	}
	require.NotZero(t, ups)
	require.Equal(t, ups, downs)
}
