package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerdocs/authclient/transport"
)

// SchemaVersion is written into every snapshot. Payloads carrying any other
// version decode as [ErrCorrupt] and are discarded by the caller.
const SchemaVersion = 1

// DefaultKey is the fixed storage key used when none is configured.
const DefaultKey = "authclient.session"

var (
	// ErrNotFound reports that no snapshot is persisted under the key.
	ErrNotFound = errors.New("snapshot not found")

	// ErrCorrupt reports that a persisted payload could not be decoded.
	// The caller removes the payload and starts unauthenticated.
	ErrCorrupt = errors.New("snapshot corrupt")
)

// Snapshot is the persisted session restart cache.
type Snapshot struct {
	Schema  int             `json:"schema"`
	User    *transport.User `json:"user"`
	Token   string          `json:"token,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	SavedAt time.Time       `json:"saved_at"`
}

// Store is the persistence contract for the single session snapshot.
// Implementations must treat Clear of an absent snapshot as a no-op.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	Clear(ctx context.Context) error
}

// Encode serializes snap, stamping the current schema version.
func Encode(snap *Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, errors.New("snapshot: nil snapshot")
	}
	s := *snap
	s.Schema = SchemaVersion
	return json.Marshal(&s)
}

// Decode parses a persisted payload. Malformed JSON, a missing user record,
// and schema mismatches all surface as [ErrCorrupt].
func Decode(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if snap.Schema != SchemaVersion {
		return nil, fmt.Errorf("%w: schema %d", ErrCorrupt, snap.Schema)
	}
	if snap.User == nil || snap.User.ID == "" {
		return nil, fmt.Errorf("%w: missing user record", ErrCorrupt)
	}
	return &snap, nil
}
