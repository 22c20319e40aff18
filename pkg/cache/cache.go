package cache

import (
	"time"

	"github.com/amirasaad/payproc/pkg/dto"
)

// TransactionCache defines the interface for caching read-model rows.
// Get returns (nil, nil) on a miss; the read model is always the
// authority and a stale or missing entry only costs a repository hit.
type TransactionCache interface {
	Get(key string) (*dto.TransactionRead, error)
	Set(key string, txn *dto.TransactionRead, ttl time.Duration) error
	Delete(key string) error
}
