// Package session implements the crash-safe session/checkpoint store
// (C13): atomic write-temp-then-rename persistence for SessionRecord
// values, matching the fsync/rename sequence of the original Rust
// awb_storage::session_store::JsonSessionStore.
package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"

	"gitlab.com/tozd/go/errors"

	"gitlab.com/wikibot/awb/domain"
)

var sessionIDRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

func validateID(id string) errors.E {
	if id == "" || id[0] == '.' || !sessionIDRe.MatchString(id) {
		errE := errors.New("invalid session id")
		errors.Details(errE)["id"] = id
		return errE
	}
	return nil
}

// FileStore is the default crash-safe JSON file implementation of
// ports.SessionStore.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir. The directory is not
// touched here; Save creates it if absent.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) finalPath(id string) string { return filepath.Join(s.dir, id+".json") }
func (s *FileStore) tempPath(id string) string  { return filepath.Join(s.dir, id+".json.tmp") }

func rejectSymlink(path string) errors.E {
	info, err := os.Lstat(path)
	if err != nil {
		return nil // does not exist yet: nothing to refuse
	}
	if info.Mode()&os.ModeSymlink != 0 {
		errE := errors.New("refusing to write through a symlink")
		errors.Details(errE)["path"] = path
		return errE
	}
	return nil
}

// Save writes rec atomically: temp file -> fsync -> rename -> fsync parent.
func (s *FileStore) Save(_ context.Context, rec domain.SessionRecord) error {
	if errE := validateID(rec.ID); errE != nil {
		return errE
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.WithStack(err)
	}

	final := s.finalPath(rec.ID)
	temp := s.tempPath(rec.ID)
	if errE := rejectSymlink(final); errE != nil {
		return errE
	}
	if errE := rejectSymlink(temp); errE != nil {
		return errE
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}

	f, err := os.OpenFile(temp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return errors.WithStack(err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.WithStack(err)
	}
	if err := f.Close(); err != nil {
		return errors.WithStack(err)
	}

	if err := os.Rename(temp, final); err != nil {
		return errors.WithStack(err)
	}

	if dir, err := os.Open(s.dir); err == nil {
		_ = dir.Sync()
		_ = dir.Close()
	}

	return nil
}

// Load reads a session by ID, recovering from a leftover temp file if the
// final file is missing (a crash between write and rename).
func (s *FileStore) Load(_ context.Context, id string) (domain.SessionRecord, error) {
	if errE := validateID(id); errE != nil {
		return domain.SessionRecord{}, errE
	}
	final := s.finalPath(id)
	if errE := rejectSymlink(final); errE != nil {
		return domain.SessionRecord{}, errE
	}

	if _, err := os.Stat(final); err != nil {
		temp := s.tempPath(id)
		if _, terr := os.Stat(temp); terr == nil {
			if err := os.Rename(temp, final); err != nil {
				return domain.SessionRecord{}, errors.WithStack(err)
			}
		} else {
			errE := errors.New("session not found")
			errors.Details(errE)["id"] = id
			return domain.SessionRecord{}, errE
		}
	}

	data, err := os.ReadFile(final)
	if err != nil {
		return domain.SessionRecord{}, errors.WithStack(err)
	}
	var rec domain.SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.SessionRecord{}, errors.WithStack(err)
	}
	return rec, nil
}

// List returns every valid session ID found in the store directory.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		id := name[:len(name)-len(".json")]
		if validateID(id) == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Delete removes a session's file, if present.
func (s *FileStore) Delete(_ context.Context, id string) error {
	if errE := validateID(id); errE != nil {
		return errE
	}
	final := s.finalPath(id)
	if errE := rejectSymlink(final); errE != nil {
		return errE
	}
	if err := os.Remove(final); err != nil && !os.IsNotExist(err) {
		return errors.WithStack(err)
	}
	return nil
}
