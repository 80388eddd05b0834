package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/sitetree/balance"
	"github.com/hupe1980/sitetree/blobstore"
	"github.com/hupe1980/sitetree/codec"
)

const (
	ManifestPrefix = "MANIFEST"
	CurrentName    = "CURRENT"
	FormatVersion  = 1
)

var (
	// ErrNoManifest is returned when the store holds no catalog yet.
	ErrNoManifest = errors.New("catalog: no manifest")
	// ErrUnsupportedVersion is returned for manifests written by a newer format.
	ErrUnsupportedVersion = errors.New("catalog: unsupported manifest version")
	// ErrDuplicateRun is returned when an entry's run id is already recorded.
	ErrDuplicateRun = errors.New("catalog: duplicate run id")
	// ErrRunNotFound is returned by Manifest.Find for unknown run ids.
	ErrRunNotFound = errors.New("catalog: run not found")
)

// Entry describes one published partition run.
type Entry struct {
	RunID     string            `json:"run_id"`
	CreatedAt time.Time         `json:"created_at"`
	Dims      int               `json:"dims"`
	MinSize   int               `json:"min_size"`
	Years     balance.YearRange `json:"years"`
	Strategy  string            `json:"strategy"`
	Nodes     int               `json:"nodes"`
	Leaves    int               `json:"leaves"`
	Points    int               `json:"points"`
	Snapshot  string            `json:"snapshot"`
	Checksum  uint32            `json:"checksum"`
	Blobs     []string          `json:"blobs"`
}

// Manifest is the catalog state at one point in time.
type Manifest struct {
	Version int     `json:"version"`
	ID      uint64  `json:"id"`
	Entries []Entry `json:"entries"`
}

// Latest returns the most recently appended entry.
func (m *Manifest) Latest() (Entry, bool) {
	if m == nil || len(m.Entries) == 0 {
		return Entry{}, false
	}
	return m.Entries[len(m.Entries)-1], true
}

// Find returns the entry for runID.
func (m *Manifest) Find(runID string) (Entry, error) {
	if m != nil {
		for _, e := range m.Entries {
			if e.RunID == runID {
				return e, nil
			}
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
}

// Store reads and writes the catalog in a blob store.
type Store struct {
	blobs blobstore.BlobStore
	codec codec.Codec
	mu    sync.Mutex
}

// NewStore creates a catalog over blobs. A nil codec selects codec.Default.
func NewStore(blobs blobstore.BlobStore, c codec.Codec) *Store {
	return &Store{blobs: blobs, codec: codec.Resolve(c)}
}

// ManifestName returns the blob name of manifest id.
func ManifestName(id uint64) string {
	return fmt.Sprintf("%s-%06d.json", ManifestPrefix, id)
}

// Load loads the current manifest. It returns ErrNoManifest when no
// catalog has been written.
func (s *Store) Load(ctx context.Context) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) (*Manifest, error) {
	current, err := blobstore.ReadAll(ctx, s.blobs, CurrentName)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, ErrNoManifest
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", CurrentName, err)
	}

	name := strings.TrimSpace(string(current))
	data, err := blobstore.ReadAll(ctx, s.blobs, name)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", name, err)
	}

	var m Manifest
	if err := s.codec.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", name, err)
	}
	if m.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d (expected %d)", ErrUnsupportedVersion, m.Version, FormatVersion)
	}
	return &m, nil
}

// Save writes m as a new manifest and points CURRENT at it. m.ID is
// incremented.
func (s *Store) Save(ctx context.Context, m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, m)
}

func (s *Store) save(ctx context.Context, m *Manifest) error {
	m.Version = FormatVersion
	m.ID++

	name := ManifestName(m.ID)
	data, err := s.codec.Marshal(m)
	if err != nil {
		return fmt.Errorf("catalog: encode manifest: %w", err)
	}
	if err := s.blobs.Put(ctx, name, data); err != nil {
		return fmt.Errorf("catalog: write %s: %w", name, err)
	}
	if err := s.blobs.Put(ctx, CurrentName, []byte(name)); err != nil {
		return fmt.Errorf("catalog: update %s: %w", CurrentName, err)
	}
	return nil
}

// Append adds e to the current manifest and saves the result.
func (s *Store) Append(ctx context.Context, e Entry) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load(ctx)
	if errors.Is(err, ErrNoManifest) {
		m, err = &Manifest{Version: FormatVersion}, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := m.Find(e.RunID); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateRun, e.RunID)
	}

	m.Entries = append(m.Entries, e)
	if err := s.save(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Prune deletes all manifest blobs except the newest keep, never removing
// the one CURRENT points to. It returns the deleted names.
func (s *Store) Prune(ctx context.Context, keep int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.blobs.List(ctx, ManifestPrefix+"-")
	if err != nil {
		return nil, fmt.Errorf("catalog: list manifests: %w", err)
	}

	current, err := blobstore.ReadAll(ctx, s.blobs, CurrentName)
	if err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		return nil, fmt.Errorf("catalog: read %s: %w", CurrentName, err)
	}
	live := strings.TrimSpace(string(current))

	// Zero-padded ids keep lexical order equal to id order.
	slices.Sort(names)
	keep = max(keep, 0)
	if len(names) <= keep {
		return nil, nil
	}

	var deleted []string
	for _, name := range names[:len(names)-keep] {
		if name == live {
			continue
		}
		if err := s.blobs.Delete(ctx, name); err != nil {
			return deleted, fmt.Errorf("catalog: delete %s: %w", name, err)
		}
		deleted = append(deleted, name)
	}
	return deleted, nil
}
