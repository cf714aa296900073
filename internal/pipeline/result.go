package pipeline

import "github.com/snapetech/assetfetch/internal/platform"

// Stage is the furthest state a run reached.
type Stage string

const (
	StageStart     Stage = "start"
	StageIdentity  Stage = "identity_resolved"
	StageContext   Stage = "context_resolved"
	StageName      Stage = "name_resolved"
	StageLocation  Stage = "location_resolved"
	StagePersisted Stage = "persisted"
)

// Result is the outcome of one pipeline run. FilePath is empty unless every
// required step succeeded; Creator and PlaceID are filled in best-effort for
// diagnostics.
type Result struct {
	AssetID   string
	FilePath  string
	Creator   platform.Creator
	PlaceID   string
	Name      string
	Stem      string
	Bytes     int64
	MirrorURL string
	Stage     Stage
	Err       error
}

// OK reports whether the asset was persisted.
func (r Result) OK() bool { return r.FilePath != "" && r.Err == nil }

// Outcome classifies Err. Filesystem failures while persisting show up as
// platform.OutcomeOther.
func (r Result) Outcome() platform.Outcome { return platform.Classify(r.Err) }
