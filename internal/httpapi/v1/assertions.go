package v1

import (
	"github.com/tinoosan/finance/internal/storage/memory"
	"github.com/tinoosan/finance/internal/storage/postgres"
)

// Compile-time interface assertions for both stores against the API's Store.
var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*postgres.Store)(nil)
)
