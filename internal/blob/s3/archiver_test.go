package s3blob

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outcomelab/mutuel/internal/domain"
	"github.com/outcomelab/mutuel/internal/store/memory"
)

// fakeBlobStore keeps uploaded objects in a map, standing in for the bucket.
type fakeBlobStore struct {
	objects map[string]string
	types   map[string]string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{
		objects: make(map[string]string),
		types:   make(map[string]string),
	}
}

func (f *fakeBlobStore) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[path] = string(b)
	f.types[path] = contentType
	return nil
}

func (f *fakeBlobStore) PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error {
	return f.Put(ctx, path, data, "")
}

func (f *fakeBlobStore) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	body, ok := f.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *fakeBlobStore) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	var out []domain.BlobInfo
	for path, body := range f.objects {
		if strings.HasPrefix(path, prefix) {
			out = append(out, domain.BlobInfo{Path: path, Size: int64(len(body))})
		}
	}
	return out, nil
}

func (f *fakeBlobStore) Exists(ctx context.Context, path string) (bool, error) {
	_, ok := f.objects[path]
	return ok, nil
}

func seedLedger(t *testing.T, ledger *memory.Ledger) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, ledger.Update(ctx, func(tx domain.Tx) error {
		if err := tx.Treasury().Deposit(ctx, "alice", 100); err != nil {
			return err
		}
		return tx.Treasury().Transfer(ctx, "alice", "vault", 40)
	}))
}

func TestArchiveLedger(t *testing.T) {
	ctx := context.Background()
	cutoff := time.Now().Add(time.Minute)
	wantPath := archivePath("settlements", cutoff)

	t.Run("uploads jsonl partition", func(t *testing.T) {
		store := newFakeBlobStore()
		ledger := memory.NewLedger()
		audit := memory.NewAuditStore()
		seedLedger(t, ledger)

		arch := NewArchiver(store, store, ledger, audit)
		count, err := arch.ArchiveLedger(ctx, cutoff)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		body, ok := store.objects[wantPath]
		require.True(t, ok)
		lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
		assert.Len(t, lines, 2)
		assert.Contains(t, lines[0], `"deposit"`)
		assert.Contains(t, lines[1], `"transfer"`)
		assert.Equal(t, "application/x-ndjson", store.types[wantPath])

		// The upload leaves an audit trail.
		rows, err := audit.ListBefore(ctx, cutoff)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "archive.ledger", rows[0].Event)
	})

	t.Run("skips existing partition", func(t *testing.T) {
		store := newFakeBlobStore()
		store.objects[wantPath] = "sentinel"
		ledger := memory.NewLedger()
		seedLedger(t, ledger)

		arch := NewArchiver(store, store, ledger, memory.NewAuditStore())
		count, err := arch.ArchiveLedger(ctx, cutoff)
		require.NoError(t, err)
		assert.Zero(t, count)
		assert.Equal(t, "sentinel", store.objects[wantPath])
	})

	t.Run("nothing to archive", func(t *testing.T) {
		store := newFakeBlobStore()
		arch := NewArchiver(store, store, memory.NewLedger(), memory.NewAuditStore())

		count, err := arch.ArchiveLedger(ctx, cutoff)
		require.NoError(t, err)
		assert.Zero(t, count)
		assert.Empty(t, store.objects)
	})

	t.Run("nil reader disables the skip check", func(t *testing.T) {
		store := newFakeBlobStore()
		store.objects[wantPath] = "stale"
		ledger := memory.NewLedger()
		seedLedger(t, ledger)

		arch := NewArchiver(store, nil, ledger, memory.NewAuditStore())
		count, err := arch.ArchiveLedger(ctx, cutoff)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
		assert.NotEqual(t, "stale", store.objects[wantPath])
	})
}

func TestArchiveAudit(t *testing.T) {
	ctx := context.Background()
	cutoff := time.Now().Add(time.Minute)

	store := newFakeBlobStore()
	audit := memory.NewAuditStore()
	require.NoError(t, audit.Log(ctx, "market_created", map[string]any{"market_id": 1}))
	require.NoError(t, audit.Log(ctx, "market_resolved", map[string]any{"market_id": 1}))

	arch := NewArchiver(store, store, memory.NewLedger(), audit)
	count, err := arch.ArchiveAudit(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	body := store.objects[archivePath("audit", cutoff)]
	assert.Contains(t, body, "market_created")
	assert.Contains(t, body, "market_resolved")
}

func TestRunArchivesBothKinds(t *testing.T) {
	ctx := context.Background()
	cutoff := time.Now().Add(time.Minute)

	store := newFakeBlobStore()
	ledger := memory.NewLedger()
	audit := memory.NewAuditStore()
	seedLedger(t, ledger)
	require.NoError(t, audit.Log(ctx, "deposit", nil))

	arch := NewArchiver(store, store, ledger, audit)
	require.NoError(t, arch.Run(ctx, cutoff))

	assert.Contains(t, store.objects, archivePath("settlements", cutoff))
	assert.Contains(t, store.objects, archivePath("audit", cutoff))
}

func TestArchivePath(t *testing.T) {
	at := time.Date(2026, 8, 30, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, "archive/settlements/2026-08.jsonl", archivePath("settlements", at))
	assert.Equal(t, "archive/audit/2026-08.jsonl", archivePath("audit", at))
}
