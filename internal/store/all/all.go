// Package all registers every built-in run history backend. Blank-import it
// from main packages that select a backend from config.
package all

import (
	_ "datamerge/internal/store/mssql"
	_ "datamerge/internal/store/postgres"
	_ "datamerge/internal/store/sqlite"
)
