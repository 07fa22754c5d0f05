package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Sumatoshi-tech/recut/pkg/persist"
)

// Directory permissions for checkpoint trees.
const dirPerm = 0o750

// metadataBase is the metadata file basename inside a job directory.
const metadataBase = "checkpoint"

// DefaultDir returns the default checkpoint root (~/.recut/checkpoints).
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return filepath.Join(home, ".recut", "checkpoints")
}

// JobKey derives the directory name for a job from its parameters: the
// first 16 hex chars of a SHA-256 over fingerprint, style, and seed.
func JobKey(p Params) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", p.Fingerprint, p.Style, p.Seed)))

	return hex.EncodeToString(h[:8])
}

// Manager stores and restores stage payloads for one job.
type Manager struct {
	baseDir string
	params  Params
	codec   persist.Codec
}

// NewManager creates a manager rooted at baseDir for the given job.
func NewManager(baseDir string, params Params) *Manager {
	return &Manager{
		baseDir: baseDir,
		params:  params,
		codec:   persist.NewLZ4Codec(),
	}
}

// Dir returns this job's checkpoint directory.
func (m *Manager) Dir() string {
	return filepath.Join(m.baseDir, JobKey(m.params))
}

// Exists reports whether any checkpoint metadata is present for the job.
func (m *Manager) Exists() bool {
	_, err := m.loadMetadata()

	return err == nil
}

// Clear removes the job's checkpoint directory.
func (m *Manager) Clear() error {
	dir := m.Dir()

	_, statErr := os.Stat(dir)
	if os.IsNotExist(statErr) {
		return nil
	}

	err := os.RemoveAll(dir)
	if err != nil {
		return fmt.Errorf("remove checkpoint dir: %w", err)
	}

	return nil
}

// SaveStage persists one stage's output and records its checksum in the
// metadata. Both writes are atomic; a crash between them leaves a payload
// the metadata does not vouch for, which later reads treat as absent.
func (m *Manager) SaveStage(stage string, payload any) error {
	dir := m.Dir()

	err := os.MkdirAll(dir, dirPerm)
	if err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	err = persist.SaveState(dir, stage, m.codec, payload)
	if err != nil {
		return fmt.Errorf("save stage %s: %w", stage, err)
	}

	sum, err := m.payloadChecksum(stage)
	if err != nil {
		return fmt.Errorf("checksum stage %s: %w", stage, err)
	}

	meta, loadErr := m.loadMetadata()
	if loadErr != nil {
		meta = &Metadata{
			Version:   MetadataVersion,
			Params:    m.params,
			Checksums: map[string]string{},
		}
	}

	meta.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	meta.Checksums[stage] = sum

	err = persist.SaveState(dir, metadataBase, persist.NewJSONCodec(), meta)
	if err != nil {
		return fmt.Errorf("save checkpoint metadata: %w", err)
	}

	return nil
}

// LoadStage restores one stage's output into out. It reports false when the
// stage was never checkpointed, belongs to different parameters, or fails
// its checksum or decode: the caller recomputes in every one of those cases.
func (m *Manager) LoadStage(stage string, out any) bool {
	meta, err := m.loadMetadata()
	if err != nil || meta.Version != MetadataVersion || meta.Params != m.params {
		return false
	}

	want, ok := meta.Checksums[stage]
	if !ok {
		return false
	}

	sum, err := m.payloadChecksum(stage)
	if err != nil || sum != want {
		return false
	}

	err = persist.LoadState(m.Dir(), stage, m.codec, out)

	return err == nil
}

// Stages lists the checkpointed stages recorded in the metadata.
func (m *Manager) Stages() []string {
	meta, err := m.loadMetadata()
	if err != nil {
		return nil
	}

	stages := make([]string, 0, len(meta.Checksums))
	for stage := range meta.Checksums {
		stages = append(stages, stage)
	}

	return stages
}

func (m *Manager) loadMetadata() (*Metadata, error) {
	var meta Metadata

	err := persist.LoadState(m.Dir(), metadataBase, persist.NewJSONCodec(), &meta)
	if err != nil {
		return nil, err
	}

	return &meta, nil
}

func (m *Manager) payloadChecksum(stage string) (string, error) {
	data, err := os.ReadFile(filepath.Join(m.Dir(), stage+m.codec.Extension()))
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:]), nil
}
