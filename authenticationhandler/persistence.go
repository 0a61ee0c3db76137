// authenticationhandler/persistence.go
package authenticationhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"golang.org/x/oauth2"
)

const tokenCacheFilePrefix = ".tokencache."

// SnapshotEntry is one account and the last token issued for it.
type SnapshotEntry struct {
	Account Account       `json:"account"`
	Token   *oauth2.Token `json:"token"`
}

// Snapshot is the persisted form of an identity store's token cache.
type Snapshot struct {
	SavedAt time.Time       `json:"saved_at"`
	Entries []SnapshotEntry `json:"entries"`
}

// TokenPersistence keeps identity store state across process restarts.
type TokenPersistence interface {
	// Load returns the last saved snapshot, or nil when nothing has been saved yet.
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot *Snapshot) error
}

// AFSPersistence stores the snapshot as JSON at <location>/.tokencache.<correlationID>. location may be
// any URL the afs service understands, plain local paths included.
type AFSPersistence struct {
	fs  afs.Service
	URL string
}

// NewAFSPersistence returns a nil TokenPersistence when correlationID is empty, which disables persistence.
func NewAFSPersistence(location, correlationID string) TokenPersistence {
	if correlationID == "" {
		return nil
	}
	if location == "" {
		location = "."
	}
	return &AFSPersistence{
		fs:  afs.New(),
		URL: url.Join(location, tokenCacheFilePrefix+correlationID),
	}
}

// Load reads the snapshot, returning nil without error when the file does not exist.
func (p *AFSPersistence) Load(ctx context.Context) (*Snapshot, error) {
	exists, err := p.fs.Exists(ctx, p.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to check token cache %v: %w", p.URL, err)
	}
	if !exists {
		return nil, nil
	}
	data, err := p.fs.DownloadWithURL(ctx, p.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read token cache %v: %w", p.URL, err)
	}
	snapshot := &Snapshot{}
	if err = json.Unmarshal(data, snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode token cache %v: %w", p.URL, err)
	}
	return snapshot, nil
}

// Save overwrites the snapshot file, readable by the owner only.
func (p *AFSPersistence) Save(ctx context.Context, snapshot *Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	if err = p.fs.Upload(ctx, p.URL, 0o600, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write token cache %v: %w", p.URL, err)
	}
	return nil
}
