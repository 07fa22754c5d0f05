// Package checkpoint persists pipeline stage outputs so a re-run of the
// same input and parameters resumes after the expensive stages instead of
// recomputing them. Payloads are LZ4-framed JSON next to a metadata file;
// a corrupt or mismatched checkpoint reads as absent, never as an error.
package checkpoint

// MetadataVersion is the current checkpoint metadata format version.
const MetadataVersion = 1

// Params identify the job a checkpoint belongs to. A checkpoint is only
// valid for the exact source fingerprint, style, and seed that produced it.
type Params struct {
	Fingerprint string `json:"fingerprint"`
	Style       string `json:"style"`
	Seed        int64  `json:"seed"`
}

// Metadata records what a job checkpoint holds and for which parameters.
type Metadata struct {
	Version   int               `json:"version"`
	Params    Params            `json:"params"`
	CreatedAt string            `json:"created_at"`
	Checksums map[string]string `json:"checksums"` // Stage → payload SHA-256.
}
