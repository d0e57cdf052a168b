// Package statusdir persists per-container state as one JSON file per
// container under a root directory. WithLock offers an on-disk flock
// per container; Save, Load, Remove and List do not take it
// themselves.
package statusdir

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/linyaps-box/box/internal/box/boxerr"
)

// Phase is the lifecycle phase recorded for a container: Creating,
// Created, Running, Stopped.
type Phase string

const (
	PhaseCreating Phase = "creating"
	PhaseCreated  Phase = "created"
	PhaseRunning  Phase = "running"
	PhaseStopped  Phase = "stopped"
)

// Record is the persisted snapshot of one container's state.
type Record struct {
	ID          string            `json:"id"`
	Phase       Phase             `json:"status"`
	Pid         int               `json:"pid,omitempty"`
	Bundle      string            `json:"bundle"`
	Created     time.Time         `json:"created"`
	Annotations map[string]string `json:"annotations,omitempty"`
	ExitCode    *int              `json:"exitCode,omitempty"`
}

// Dir manages the status records under root, one file and one lock
// per container ID.
type Dir struct {
	root string
}

// Open ensures root exists and returns a Dir rooted there.
func Open(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, boxerr.Wrap(boxerr.Io, "create status directory "+root, err)
	}
	return &Dir{root: root}, nil
}

func (d *Dir) recordPath(id string) string { return filepath.Join(d.root, id+".json") }
func (d *Dir) lockPath(id string) string   { return filepath.Join(d.root, id+".lock") }

// WithLock runs fn while holding an exclusive lock on id's status
// record, blocking until it is available.
func (d *Dir) WithLock(id string, fn func() error) error {
	lock := flock.New(d.lockPath(id))
	if err := lock.Lock(); err != nil {
		return boxerr.Wrap(boxerr.Io, "lock status record "+id, err)
	}
	defer lock.Unlock()
	return fn()
}

// Save writes r atomically: marshal to a temp file in the same
// directory, then rename over the final path, so readers never
// observe a partial write.
func (d *Dir) Save(r Record) error {
	payload, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return boxerr.Wrap(boxerr.Config, "marshal status record", err)
	}
	final := d.recordPath(r.ID)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return boxerr.Wrap(boxerr.Io, "write status record "+r.ID, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return boxerr.Wrap(boxerr.Io, "rename status record "+r.ID, err)
	}
	return nil
}

// Load reads the current record for id.
func (d *Dir) Load(id string) (Record, error) {
	var r Record
	data, err := os.ReadFile(d.recordPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return r, boxerr.New(boxerr.State, "no such container "+id)
		}
		return r, boxerr.Wrap(boxerr.Io, "read status record "+id, err)
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, boxerr.Wrap(boxerr.Config, "parse status record "+id, err)
	}
	return r, nil
}

// Remove deletes id's record and lock file. Missing files are not an error.
func (d *Dir) Remove(id string) error {
	for _, p := range []string{d.recordPath(id), d.lockPath(id)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return boxerr.Wrap(boxerr.Io, "remove "+p, err)
		}
	}
	return nil
}

// List returns every container ID with a status record under root.
func (d *Dir) List() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, boxerr.Wrap(boxerr.Io, "list status directory", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if filepath.Ext(name) == ".json" {
			ids = append(ids, name[:len(name)-len(".json")])
		}
	}
	return ids, nil
}
