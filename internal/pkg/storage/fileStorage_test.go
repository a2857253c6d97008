package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ds124wfegd/WB_L3/avatar/internal/entity"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDir = "/uploads"

func newTestStorage(t *testing.T) (FileStorage, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := NewFileStorage(fs, testDir)
	require.NoError(t, err)
	return store, fs
}

func TestPutAndOpen(t *testing.T) {
	store, _ := newTestStorage(t)
	name, err := NewName("42", entity.ContainerJPEG)
	require.NoError(t, err)

	path, err := store.Put(name, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(testDir, name), path)
	assert.True(t, store.Exists(name))

	file, info, err := store.Open(name)
	require.NoError(t, err)
	defer file.Close()
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, int64(7), info.Size())

	// only the final entry remains; the staging file was renamed away
	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, name, entries[0].Name)
	assert.False(t, entries[0].Temp)
}

func TestPutIsWriteOnce(t *testing.T) {
	store, _ := newTestStorage(t)
	name, err := NewName("42", entity.ContainerPNG)
	require.NoError(t, err)

	_, err = store.Put(name, []byte("first"))
	require.NoError(t, err)

	_, err = store.Put(name, []byte("second"))
	require.ErrorIs(t, err, entity.ErrNameCollision)

	file, _, err := store.Open(name)
	require.NoError(t, err)
	defer file.Close()
	data, _ := io.ReadAll(file)
	assert.Equal(t, "first", string(data))

	entries, err := store.List()
	require.NoError(t, err)
	assert.Len(t, entries, 1, "collision must not leave a staging file behind")
}

func TestPutRejectsUnsafeNames(t *testing.T) {
	store, _ := newTestStorage(t)

	for _, name := range []string{"", "..", "../escape.jpg", "a/b.jpg", `a\b.jpg`, TempPrefix + "x.jpg"} {
		t.Run(fmt.Sprintf("%q", name), func(t *testing.T) {
			_, err := store.Put(name, []byte("x"))
			assert.ErrorIs(t, err, entity.ErrInvalidName)
		})
	}
}

type failingFs struct {
	afero.Fs
}

func (f failingFs) Rename(oldname, newname string) error {
	return errors.New("disk on fire")
}

func TestPutFailureLeavesNothingVisible(t *testing.T) {
	fs := failingFs{Fs: afero.NewMemMapFs()}
	store, err := NewFileStorage(fs, testDir)
	require.NoError(t, err)

	_, err = store.Put("user_000000000000_00000000000000000000000000000000.jpg", []byte("x"))
	require.Error(t, err)

	entries, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpenRefusesTempAndMissing(t *testing.T) {
	store, fs := newTestStorage(t)
	require.NoError(t, afero.WriteFile(fs, filepath.Join(testDir, TempPrefix+"abc"), []byte("x"), 0644))

	_, _, err := store.Open(TempPrefix + "abc")
	assert.ErrorIs(t, err, entity.ErrInvalidName)

	_, _, err = store.Open("user_000000000000_00000000000000000000000000000000.jpg")
	assert.ErrorIs(t, err, entity.ErrImageNotFound)
}

func TestListMarksTempEntries(t *testing.T) {
	store, fs := newTestStorage(t)
	require.NoError(t, afero.WriteFile(fs, filepath.Join(testDir, TempPrefix+"one"), []byte("x"), 0644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(testDir, "user_a.jpg"), []byte("xy"), 0644))
	require.NoError(t, fs.MkdirAll(filepath.Join(testDir, "nested"), 0755))

	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byName := map[string]Entry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	assert.True(t, byName[TempPrefix+"one"].Temp)
	assert.False(t, byName["user_a.jpg"].Temp)
	assert.Equal(t, int64(2), byName["user_a.jpg"].Size)
}

func TestDeleteMissingIsNotAnError(t *testing.T) {
	store, _ := newTestStorage(t)
	assert.NoError(t, store.Delete("user_gone.jpg"))
	assert.ErrorIs(t, store.Delete("../etc/passwd"), entity.ErrInvalidName)
}

func TestConcurrentPutsUseDisjointNames(t *testing.T) {
	store, _ := newTestStorage(t)
	const owners = 32

	var wg sync.WaitGroup
	names := make([]string, owners)
	errs := make([]error, owners)
	for i := 0; i < owners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			owner := fmt.Sprintf("owner-%d", i)
			name, err := NewName(owner, entity.ContainerJPEG)
			if err != nil {
				errs[i] = err
				return
			}
			names[i] = name
			_, errs[i] = store.Put(name, []byte(owner))
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i, name := range names {
		require.NoError(t, errs[i])
		assert.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true

		file, _, err := store.Open(name)
		require.NoError(t, err)
		data, _ := io.ReadAll(file)
		file.Close()
		assert.Equal(t, fmt.Sprintf("owner-%d", i), string(data))
	}

	entries, err := store.List()
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name, TempPrefix))
	}
}

func TestNewFileStorageOnOsFs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	store, err := NewFileStorage(afero.NewOsFs(), dir)
	require.NoError(t, err)

	name, err := NewName("7", entity.ContainerWEBP)
	require.NoError(t, err)
	path, err := store.Put(name, []byte("webp"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "webp", string(data))
}
