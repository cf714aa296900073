// Package pipeline resolves an asset ID into a file on disk by chaining the
// platform lookups: creator → root place → display name → signed location →
// bytes. Each run is independent; nothing is cached between asset IDs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/snapetech/assetfetch/internal/materializer"
	"github.com/snapetech/assetfetch/internal/naming"
	"github.com/snapetech/assetfetch/internal/platform"
)

// ErrEmptyAssetID is returned (in Result.Err) for a blank asset ID.
var ErrEmptyAssetID = errors.New("empty asset id")

// Platform is the set of lookups the pipeline needs. *platform.Client
// implements it.
type Platform interface {
	Creator(ctx context.Context, assetID string) (platform.Creator, error)
	RootPlace(ctx context.Context, creator platform.Creator) (string, error)
	AssetName(ctx context.Context, assetID string) (string, error)
	AssetLocation(ctx context.Context, lr platform.LocationRequest) (string, error)
}

// Mirror copies a persisted file to secondary storage and returns where it went.
type Mirror interface {
	Put(ctx context.Context, path string) (string, error)
}

// Recorder keeps finished results, e.g. a download ledger.
type Recorder interface {
	Record(ctx context.Context, r Result) error
}

// Observer receives step timings and finished results, e.g. for metrics.
type Observer interface {
	ObserveStep(step string, outcome platform.Outcome, elapsed time.Duration)
	ObserveResult(r Result, elapsed time.Duration)
}

// Step names passed to Observer.ObserveStep.
const (
	StepIdentity = "identity"
	StepContext  = "context"
	StepName     = "name"
	StepLocation = "location"
	StepFetch    = "fetch"
	StepMirror   = "mirror"
)

// Resolver runs the pipeline. Platform and Store are required; the rest are
// optional.
type Resolver struct {
	Platform   Platform
	Store      materializer.Interface
	Credential string
	AssetType  string // batch asset type tag; platform.AssetTypeAudio when empty

	Mirror    Mirror
	Recorders []Recorder
	Observer  Observer
}

// Resolve runs the pipeline for one asset ID. It never returns an error: the
// first failure is in Result.Err and Result.FilePath is empty, with Creator
// and PlaceID filled in as far as the run got.
func (r *Resolver) Resolve(ctx context.Context, assetID string) Result {
	began := time.Now()
	res := r.resolve(ctx, strings.TrimSpace(assetID))
	elapsed := time.Since(began)
	if r.Observer != nil {
		r.Observer.ObserveResult(res, elapsed)
	}
	for _, rec := range r.Recorders {
		if err := rec.Record(ctx, res); err != nil {
			log.Printf("pipeline: record asset=%s err=%v", res.AssetID, err)
		}
	}
	if res.Err != nil {
		log.Printf("pipeline: asset=%s failed stage=%s creator=%s place=%q err=%v (%s)",
			res.AssetID, res.Stage, res.Creator, res.PlaceID, res.Err, elapsed.Round(time.Millisecond))
	} else {
		log.Printf("pipeline: asset=%s ok path=%q bytes=%d creator=%s place=%s (%s)",
			res.AssetID, res.FilePath, res.Bytes, res.Creator, res.PlaceID, elapsed.Round(time.Millisecond))
	}
	return res
}

// ResolveAll resolves ids strictly in order, one at a time, and returns one
// Result per input. A failed ID does not stop the batch.
func (r *Resolver) ResolveAll(ctx context.Context, ids []string) []Result {
	out := make([]Result, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.Resolve(ctx, id))
	}
	return out
}

func (r *Resolver) resolve(ctx context.Context, assetID string) Result {
	res := Result{
		AssetID: assetID,
		Creator: platform.Creator{Kind: platform.KindUnknown},
		Stage:   StageStart,
	}
	if assetID == "" {
		res.Err = ErrEmptyAssetID
		return res
	}

	t := time.Now()
	creator, err := r.Platform.Creator(ctx, assetID)
	if err == nil && !creator.Known() {
		err = fmt.Errorf("%w: creator %s", platform.ErrNotFound, creator)
	}
	r.step(StepIdentity, err, t)
	res.Creator = creator
	if err != nil {
		res.Creator.Kind = platform.KindUnknown
		res.Err = fmt.Errorf("resolve creator: %w", err)
		return res
	}
	res.Stage = StageIdentity

	t = time.Now()
	place, err := r.Platform.RootPlace(ctx, creator)
	if err == nil && place == "" {
		err = fmt.Errorf("%w: empty root place", platform.ErrNotFound)
	}
	r.step(StepContext, err, t)
	if err != nil {
		res.Err = fmt.Errorf("resolve place: %w", err)
		return res
	}
	res.PlaceID = place
	res.Stage = StageContext

	// A missing name is not fatal; the fallback name is used for the file.
	t = time.Now()
	name, err := r.Platform.AssetName(ctx, assetID)
	r.step(StepName, err, t)
	if err != nil || name == "" {
		log.Printf("pipeline: asset=%s name lookup failed, using %q: %v", assetID, naming.UnknownAsset, err)
		name = naming.UnknownAsset
	}
	res.Name = name
	res.Stem = naming.Sanitize(name)
	res.Stage = StageName

	t = time.Now()
	location, err := r.Platform.AssetLocation(ctx, platform.LocationRequest{
		AssetID:    assetID,
		PlaceID:    place,
		Credential: r.Credential,
		AssetType:  r.AssetType,
	})
	if err == nil && location == "" {
		err = fmt.Errorf("%w: empty location", platform.ErrNotFound)
	}
	r.step(StepLocation, err, t)
	if err != nil {
		res.Err = fmt.Errorf("resolve location: %w", err)
		return res
	}
	res.Stage = StageLocation

	t = time.Now()
	art, err := r.Store.Materialize(ctx, location, res.Stem)
	r.step(StepFetch, err, t)
	if err != nil {
		res.Err = fmt.Errorf("persist: %w", err)
		return res
	}
	res.FilePath = art.Path
	res.Bytes = art.Bytes
	res.Stage = StagePersisted

	if r.Mirror != nil {
		t = time.Now()
		dest, err := r.Mirror.Put(ctx, art.Path)
		r.step(StepMirror, err, t)
		if err != nil {
			log.Printf("pipeline: mirror asset=%s path=%q err=%v", assetID, art.Path, err)
		} else {
			res.MirrorURL = dest
		}
	}
	return res
}

func (r *Resolver) step(name string, err error, began time.Time) {
	if r.Observer != nil {
		r.Observer.ObserveStep(name, platform.Classify(err), time.Since(began))
	}
}
