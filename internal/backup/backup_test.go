package backup

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2024, 3, 15, 9, 30, 5, 0, time.UTC) }

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.db3")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

type fakeMirror struct {
	uploaded []string
	err      error
}

func (f *fakeMirror) Upload(_ context.Context, localPath string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploaded = append(f.uploaded, localPath)
	return "mem://" + filepath.Base(localPath), nil
}

func TestCreateWritesVerifiedArchive(t *testing.T) {
	source := writeSource(t, "engine database bytes")
	dir := filepath.Join(t.TempDir(), "backups")

	snap, err := NewManager(source, dir, WithClock(fixedNow), WithRunID("abc")).Create(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "data_backup_20240315_093005.db3"), snap.CopyPath)
	assert.Equal(t, filepath.Join(dir, "data_backup_20240315_093005.zip"), snap.ArchivePath)
	assert.Equal(t, int64(len("engine database bytes")), snap.Size)

	copied, err := os.ReadFile(snap.CopyPath)
	require.NoError(t, err)
	assert.Equal(t, "engine database bytes", string(copied))

	zr, err := zip.OpenReader(snap.ArchivePath)
	require.NoError(t, err)
	defer zr.Close()
	assert.Equal(t, "run abc", zr.Comment)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "data_backup_20240315_093005.db3", zr.File[0].Name)
	assert.Equal(t, snap.CRC32, zr.File[0].CRC32)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "engine database bytes", string(b))
}

func TestCleanupKeepsArchive(t *testing.T) {
	snap, err := NewManager(writeSource(t, "x"), t.TempDir(), WithClock(fixedNow)).Create(context.Background())
	require.NoError(t, err)

	require.NoError(t, snap.Cleanup())
	assert.NoFileExists(t, snap.CopyPath)
	assert.FileExists(t, snap.ArchivePath)

	require.NoError(t, snap.Cleanup())
	var nilSnap *Snapshot
	assert.NoError(t, nilSnap.Cleanup())
}

func TestCreateMissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := NewManager(filepath.Join(dir, "nope.db3"), dir).Create(context.Background())
	assert.ErrorIs(t, err, ErrSourceMissing)

	_, err = NewManager(dir, filepath.Join(dir, "backups")).Create(context.Background())
	assert.ErrorIs(t, err, ErrSourceMissing)
}

func TestCreateRefusesToOverwriteArchive(t *testing.T) {
	source := writeSource(t, "x")
	dir := t.TempDir()
	m := NewManager(source, dir, WithClock(fixedNow))

	first, err := m.Create(context.Background())
	require.NoError(t, err)
	require.NoError(t, first.Cleanup())

	_, err = m.Create(context.Background())
	assert.Error(t, err)
	assert.FileExists(t, first.ArchivePath, "existing archive must survive a clash")
}

func TestCreateUploadsToMirror(t *testing.T) {
	mirror := &fakeMirror{}
	snap, err := NewManager(writeSource(t, "x"), t.TempDir(), WithClock(fixedNow), WithMirror(mirror)).Create(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{snap.ArchivePath}, mirror.uploaded)
	assert.Equal(t, "mem://data_backup_20240315_093005.zip", snap.MirrorURL)
}

func TestCreateToleratesMirrorFailure(t *testing.T) {
	mirror := &fakeMirror{err: errors.New("bucket unreachable")}
	snap, err := NewManager(writeSource(t, "x"), t.TempDir(), WithClock(fixedNow), WithMirror(mirror)).Create(context.Background())
	require.NoError(t, err)

	assert.Empty(t, snap.MirrorURL)
	assert.FileExists(t, snap.ArchivePath)
}

func TestVerifyArchiveDetectsCorruption(t *testing.T) {
	snap, err := NewManager(writeSource(t, "payload"), t.TempDir(), WithClock(fixedNow)).Create(context.Background())
	require.NoError(t, err)

	name := filepath.Base(snap.CopyPath)
	assert.NoError(t, verifyArchive(snap.ArchivePath, name, snap.Size, snap.CRC32))
	assert.Error(t, verifyArchive(snap.ArchivePath, name, snap.Size+1, snap.CRC32))
	assert.Error(t, verifyArchive(snap.ArchivePath, name, snap.Size, snap.CRC32+1))
	assert.Error(t, verifyArchive(snap.ArchivePath, "other.db3", snap.Size, snap.CRC32))
}

func TestIsArchive(t *testing.T) {
	assert.True(t, IsArchive("data_backup_20240315_093005.zip"))
	assert.False(t, IsArchive("data_backup_20240315_093005.db3"))
	assert.False(t, IsArchive("notes.zip"))
}

func TestS3MirrorUpload(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		target string
		body   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, target, body = r.Method, r.URL.Path, b
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := s3.New(s3.Options{
		Region:       "us-east-1",
		Credentials:  credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
		BaseEndpoint: aws.String(srv.URL),
		UsePathStyle: true,
	})
	mirror := newS3Mirror(client, "snapshots", "/engine/")

	archive := filepath.Join(t.TempDir(), "data_backup_20240315_093005.zip")
	require.NoError(t, os.WriteFile(archive, []byte("zip bytes"), 0o600))

	url, err := mirror.Upload(context.Background(), archive)
	require.NoError(t, err)
	assert.Equal(t, "s3://snapshots/engine/data_backup_20240315_093005.zip", url)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/snapshots/engine/data_backup_20240315_093005.zip", target)
	assert.Contains(t, string(body), "zip bytes")
}

func TestNewS3MirrorRequiresBucket(t *testing.T) {
	_, err := NewS3Mirror(context.Background(), MirrorConfig{})
	assert.Error(t, err)
}
