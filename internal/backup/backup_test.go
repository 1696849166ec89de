package backup

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/classroom-assignments/internal/models"
	"github.com/RubachokBoss/classroom-assignments/internal/repository"
)

type memoryObjects struct {
	objects map[string][]byte
	failPut bool
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: make(map[string][]byte)}
}

func (m *memoryObjects) Upload(ctx context.Context, key string, data io.Reader, size int64) error {
	if m.failPut {
		return errors.New("bucket unavailable")
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if int64(len(raw)) != size {
		return errors.New("size mismatch")
	}
	m.objects[key] = raw
	return nil
}

func (m *memoryObjects) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *memoryObjects) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func TestStoragePath(t *testing.T) {
	at := time.Date(2026, time.October, 19, 10, 15, 0, 0, time.UTC)

	assert.Equal(t, "snapshots/2026/10/classroom_20261019T101500Z.db", storagePath("snapshots", at))
	assert.Equal(t, "2026/10/classroom_20261019T101500Z.db", storagePath("", at))
}

func TestRunner_RunUploadsRestorableSnapshot(t *testing.T) {
	store, err := repository.OpenBolt(filepath.Join(t.TempDir(), "live.db"), zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	repo := repository.NewBoltAssignmentRepository(store)
	require.NoError(t, repo.Create(ctx, &models.Assignment{
		ID:        "a1",
		TeacherID: "t1",
		Title:     "Math",
		DueDate:   models.NewDate(2030, time.May, 20),
		Status:    models.StatusDraft,
		Questions: []models.Question{{ID: "q1", Question: "2+2?"}},
		Version:   1,
	}))

	objects := newMemoryObjects()
	runner := NewRunner(store, objects, "snapshots", zerolog.Nop())
	runner.now = func() time.Time { return time.Date(2026, time.October, 19, 10, 15, 0, 0, time.UTC) }

	key, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "snapshots/2026/10/classroom_20261019T101500Z.db", key)
	require.Contains(t, objects.objects, key)

	restoredPath := filepath.Join(t.TempDir(), "restored.db")
	require.NoError(t, os.WriteFile(restoredPath, objects.objects[key], 0600))

	restored, err := repository.OpenBolt(restoredPath, zerolog.Nop())
	require.NoError(t, err)
	defer restored.Close()

	got, err := repository.NewBoltAssignmentRepository(restored).GetByID(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Math", got.Title)
	assert.Len(t, got.Questions, 1)
}

func TestRunner_RunUploadError(t *testing.T) {
	store, err := repository.OpenBolt(filepath.Join(t.TempDir(), "live.db"), zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	objects := newMemoryObjects()
	objects.failPut = true

	_, err = NewRunner(store, objects, "snapshots", zerolog.Nop()).Run(context.Background())
	assert.ErrorContains(t, err, "bucket unavailable")
}

func TestRunner_PruneKeepsNewest(t *testing.T) {
	objects := newMemoryObjects()
	for _, k := range []string{
		"snapshots/2026/08/classroom_20260801T000000Z.db",
		"snapshots/2026/09/classroom_20260901T000000Z.db",
		"snapshots/2026/10/classroom_20261001T000000Z.db",
		"snapshots/2026/10/classroom_20261019T000000Z.db",
		"other/keep.db",
	} {
		objects.objects[k] = []byte("x")
	}

	runner := NewRunner(nil, objects, "snapshots", zerolog.Nop())
	deleted, err := runner.Prune(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	assert.Contains(t, objects.objects, "snapshots/2026/10/classroom_20261001T000000Z.db")
	assert.Contains(t, objects.objects, "snapshots/2026/10/classroom_20261019T000000Z.db")
	assert.Contains(t, objects.objects, "other/keep.db")
	assert.Len(t, objects.objects, 3)

	deleted, err = runner.Prune(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestRunner_RunAndPrune(t *testing.T) {
	store, err := repository.OpenBolt(filepath.Join(t.TempDir(), "live.db"), zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	objects := newMemoryObjects()
	objects.objects["snapshots/2020/01/classroom_20200101T000000Z.db"] = []byte("old")

	runner := NewRunner(store, objects, "snapshots", zerolog.Nop())
	key, err := runner.RunAndPrune(context.Background(), 1)
	require.NoError(t, err)

	assert.Len(t, objects.objects, 1)
	assert.Contains(t, objects.objects, key)
}
