package catalog

import (
	"fmt"

	"github.com/alexwday/aegis-project-sub000/internal/types"
)

// SyncError reports a failed catalog write. The transaction was rolled back
// and the key's previous rows are intact.
type SyncError struct {
	Key   types.IdentityKey
	Op    string
	Cause error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("catalog sync %s failed at %s: %v", e.Key, e.Op, e.Cause)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}
