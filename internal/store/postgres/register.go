package postgres

import "datamerge/internal/store"

func init() {
	// registers the run history backend factory
	store.Register("postgres", New)
}
