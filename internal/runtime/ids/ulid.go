package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns a time-sortable ULID encoded as a 26-character string. Dispatch
// IDs, subscription IDs and generated logger identities all come from here.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// WithPrefix returns prefix + "-" + New(). An empty prefix yields a bare ULID.
func WithPrefix(prefix string) string {
	if prefix == "" {
		return New()
	}
	return prefix + "-" + New()
}
