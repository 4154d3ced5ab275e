package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alevras/covercall/internal/database"
)

type fakeStore struct {
	uploads map[string][]byte
	objects []types.Object
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{uploads: map[string][]byte{}}
}

func (f *fakeStore) Upload(ctx context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.uploads[key] = data
	return nil
}

func (f *fakeStore) List(ctx context.Context, prefix string) ([]types.Object, error) {
	return f.objects, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func openTestDB(t *testing.T, dir, name string) *database.DB {
	db, err := database.New(database.Config{
		Path:    filepath.Join(dir, name+".db"),
		Profile: database.ProfileStandard,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Conn().Exec(`CREATE TABLE marker (v TEXT); INSERT INTO marker VALUES ('` + name + `')`)
	require.NoError(t, err)
	return db
}

func TestBackup_ArchiveContents(t *testing.T) {
	dir := t.TempDir()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	databases := map[string]*database.DB{
		"rules":  openTestDB(t, dir, "rules"),
		"config": openTestDB(t, dir, "config"),
	}

	store := newFakeStore()
	svc := NewBackupService(databases, store, dir, 5, log)

	require.NoError(t, svc.Backup(context.Background()))
	require.Len(t, store.uploads, 1)

	var key string
	var blob []byte
	for k, v := range store.uploads {
		key, blob = k, v
	}
	assert.True(t, strings.HasPrefix(key, "covercall-backup-"))
	assert.True(t, strings.HasSuffix(key, ".tar.gz"))

	// Unpack the archive and check its members
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	members := map[string][]byte{}
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		members[header.Name] = data
	}

	require.Contains(t, members, "rules.db")
	require.Contains(t, members, "config.db")
	require.Contains(t, members, "backup-metadata.json")

	var metadata BackupMetadata
	require.NoError(t, json.Unmarshal(members["backup-metadata.json"], &metadata))
	require.Len(t, metadata.Databases, 2)
	// Manifest order is deterministic
	assert.Equal(t, "config", metadata.Databases[0].Name)
	assert.Equal(t, "rules", metadata.Databases[1].Name)
	for _, db := range metadata.Databases {
		assert.True(t, strings.HasPrefix(db.Checksum, "sha256:"))
		assert.Positive(t, db.SizeBytes)
	}
}

func backupObject(stamp string, size int64) types.Object {
	return types.Object{
		Key:  aws.String("covercall-backup-" + stamp + ".tar.gz"),
		Size: aws.Int64(size),
	}
}

func TestListBackups_SortsAndFilters(t *testing.T) {
	store := newFakeStore()
	store.objects = []types.Object{
		backupObject("2025-06-01-020000", 100),
		backupObject("2025-06-03-020000", 300),
		{Key: aws.String("unrelated-object.txt")},
		{Key: aws.String("covercall-backup-not-a-timestamp.tar.gz")},
		backupObject("2025-06-02-020000", 200),
	}

	svc := NewBackupService(nil, store, t.TempDir(), 5, zerolog.New(nil).Level(zerolog.Disabled))

	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 3)

	// Newest first
	assert.Equal(t, time.Date(2025, 6, 3, 2, 0, 0, 0, time.UTC), backups[0].Timestamp)
	assert.Equal(t, int64(300), backups[0].SizeBytes)
	assert.Equal(t, time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC), backups[2].Timestamp)
}

func TestPrune_KeepsNewest(t *testing.T) {
	store := newFakeStore()
	store.objects = []types.Object{
		backupObject("2025-06-01-020000", 1),
		backupObject("2025-06-02-020000", 1),
		backupObject("2025-06-03-020000", 1),
		backupObject("2025-06-04-020000", 1),
		backupObject("2025-06-05-020000", 1),
	}

	svc := NewBackupService(nil, store, t.TempDir(), 2, zerolog.New(nil).Level(zerolog.Disabled))

	require.NoError(t, svc.Prune(context.Background()))
	assert.ElementsMatch(t, []string{
		"covercall-backup-2025-06-03-020000.tar.gz",
		"covercall-backup-2025-06-02-020000.tar.gz",
		"covercall-backup-2025-06-01-020000.tar.gz",
	}, store.deleted)
}

func TestPrune_UnderLimit(t *testing.T) {
	store := newFakeStore()
	store.objects = []types.Object{backupObject("2025-06-01-020000", 1)}

	svc := NewBackupService(nil, store, t.TempDir(), 3, zerolog.New(nil).Level(zerolog.Disabled))

	require.NoError(t, svc.Prune(context.Background()))
	assert.Empty(t, store.deleted)
}
