package state

import (
	"time"

	"github.com/google/uuid"

	"ionkit/symtab"
)

func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start:   time.Now(),
		RunID:   uuid.New(),
		Catalog: symtab.NewMemoryCatalog(),
	}
}
