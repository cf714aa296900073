// Package materializer turns a signed media location into a file on disk.
package materializer

import (
	"context"
)

// Interface fetches the bytes behind a signed location and stores them under
// the sanitized stem. Implementations must not leave a file at the final path
// unless the whole body was received.
type Interface interface {
	Materialize(ctx context.Context, location, stem string) (Artifact, error)
}

// Artifact is a persisted media file.
type Artifact struct {
	Path  string
	Bytes int64
}

const (
	DefaultDir = "audio_files"
	DefaultExt = "ogg"
)
