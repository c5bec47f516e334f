package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cuemby/statekeep/pkg/errs"
)

// manifestVersion is the only version this engine has ever written or
// read; an absent "version" field on load is treated as this version.
const manifestVersion = "1"

// Checkpoint is one entry of an app's checkpoint chain: an ascending
// integer id and an opaque, caller-supplied payload (commonly a git
// SHA, a deploy tag, or similar breadcrumb).
type Checkpoint struct {
	ID      string `json:"id"`
	Payload string `json:"payload"`
}

// IntID parses the decimal-ASCII id. Manifest entries are always
// written by this package, so a parse failure indicates external
// tampering or disk corruption.
func (c Checkpoint) IntID() (int64, error) {
	v, err := strconv.ParseInt(c.ID, 10, 64)
	if err != nil {
		return 0, errs.New(errs.IoError, "Checkpoint.IntID", err)
	}
	return v, nil
}

// Manifest is the ordered, persisted list of an app's live
// checkpoints — lowest id (oldest) first, matching creation order.
type Manifest struct {
	Version     string       `json:"version"`
	Checkpoints []Checkpoint `json:"checkpoints"`
}

func newManifest() Manifest {
	return Manifest{Version: manifestVersion}
}

// clone returns a deep copy safe for a caller to mutate or retain
// past the engine's own lock.
func (m Manifest) clone() []Checkpoint {
	out := make([]Checkpoint, len(m.Checkpoints))
	copy(out, m.Checkpoints)
	return out
}

const manifestFileName = "manifest.json"

// loadManifest reads manifest.json from root, defaulting to an empty
// version-"1" manifest when the file does not exist. An absent
// "version" key on an existing file is tolerated and normalized to "1".
func loadManifest(root string) (Manifest, error) {
	path := filepath.Join(root, manifestFileName)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return newManifest(), nil
	}
	if err != nil {
		return Manifest{}, errs.New(errs.IoError, "loadManifest", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, errs.New(errs.IoError, "loadManifest", err)
	}
	if m.Version == "" {
		m.Version = manifestVersion
	}
	return m, nil
}

// persist writes m to manifest.json under root.
func persist(root string, m Manifest) error {
	if m.Version == "" {
		m.Version = manifestVersion
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errs.New(errs.IoError, "persist", err)
	}
	path := filepath.Join(root, manifestFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errs.New(errs.IoError, "persist", err)
	}
	return nil
}
