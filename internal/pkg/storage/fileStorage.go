package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ds124wfegd/WB_L3/avatar/internal/entity"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// TempPrefix marks staging entries; final names never carry it.
const TempPrefix = "temp_"

// Entry is one listing row of the storage directory.
type Entry struct {
	Name    string
	Size    int64
	ModTime time.Time
	Temp    bool
}

// FileStorage is the flat, write-once image directory. Every write lands under a
// fresh name via temp file + rename, so readers never observe partial content.
type FileStorage interface {
	Put(name string, data []byte) (string, error)
	Open(name string) (afero.File, os.FileInfo, error)
	List() ([]Entry, error)
	Delete(name string) error
	Exists(name string) bool
}

type fileStorage struct {
	fs       afero.Fs
	basePath string
}

// NewFileStorage roots the store at basePath on fs, creating the directory if needed.
func NewFileStorage(fs afero.Fs, basePath string) (FileStorage, error) {
	if err := fs.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &fileStorage{fs: fs, basePath: basePath}, nil
}

// Put writes data under name and returns its path. name must be a final name.
func (s *fileStorage) Put(name string, data []byte) (string, error) {
	if !validEntryName(name) || strings.HasPrefix(name, TempPrefix) {
		return "", fmt.Errorf("%w: %q", entity.ErrInvalidName, name)
	}
	finalPath := filepath.Join(s.basePath, name)

	tempID, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("temp name: %w", err)
	}
	tempPath := filepath.Join(s.basePath, TempPrefix+strings.ReplaceAll(tempID.String(), "-", "")+"_"+name)

	file, err := s.fs.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if err := writeAndSync(file, data); err != nil {
		_ = s.fs.Remove(tempPath)
		return "", err
	}

	if _, err := s.fs.Stat(finalPath); err == nil {
		_ = s.fs.Remove(tempPath)
		return "", fmt.Errorf("%w: %s", entity.ErrNameCollision, name)
	}

	if err := s.fs.Rename(tempPath, finalPath); err != nil {
		_ = s.fs.Remove(tempPath)
		return "", fmt.Errorf("rename temp file: %w", err)
	}
	return finalPath, nil
}

func writeAndSync(file afero.File, data []byte) error {
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return nil
}

// Open returns a final (non-temp) entry for reading.
func (s *fileStorage) Open(name string) (afero.File, os.FileInfo, error) {
	if !validEntryName(name) || strings.HasPrefix(name, TempPrefix) {
		return nil, nil, fmt.Errorf("%w: %q", entity.ErrInvalidName, name)
	}
	file, err := s.fs.Open(filepath.Join(s.basePath, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, entity.ErrImageNotFound
		}
		return nil, nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, nil, entity.ErrImageNotFound
	}
	return file, info, nil
}

// List snapshots the directory. Entries created after the call are simply absent.
func (s *fileStorage) List() ([]Entry, error) {
	infos, err := afero.ReadDir(s.fs, s.basePath)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		entries = append(entries, Entry{
			Name:    info.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Temp:    strings.HasPrefix(info.Name(), TempPrefix),
		})
	}
	return entries, nil
}

// Delete removes name. A missing entry is not an error.
func (s *fileStorage) Delete(name string) error {
	if !validEntryName(name) {
		return fmt.Errorf("%w: %q", entity.ErrInvalidName, name)
	}
	err := s.fs.Remove(filepath.Join(s.basePath, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *fileStorage) Exists(name string) bool {
	if !validEntryName(name) {
		return false
	}
	_, err := s.fs.Stat(filepath.Join(s.basePath, name))
	return err == nil
}

// validEntryName keeps every operation inside the flat directory.
func validEntryName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}
