// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/dataset"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/logger"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/record"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/table"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/tiktok"
)

var (
	// ErrRemoteFetch wraps every failure while talking to the platform.
	ErrRemoteFetch = errors.New("remote fetch failure")
	// ErrMalformedImport wraps every failure while parsing an uploaded table.
	ErrMalformedImport = errors.New("malformed import")
	// ErrInvalidParams is returned before any remote call is made.
	ErrInvalidParams = errors.New("invalid fetch parameters")
)

// FetchParams are the user inputs of one fetch.
type FetchParams struct {
	Count      int
	SleepAfter int // seconds between request bursts
	SoundID    string
}

func (p FetchParams) validate(maxCount int) error {
	if p.Count < 1 {
		return fmt.Errorf("%w: count must be at least 1, got %d", ErrInvalidParams, p.Count)
	}
	if maxCount > 0 && p.Count > maxCount {
		return fmt.Errorf("%w: count must be at most %d, got %d", ErrInvalidParams, maxCount, p.Count)
	}
	if p.SleepAfter < 1 {
		return fmt.Errorf("%w: sleep_after must be at least 1, got %d", ErrInvalidParams, p.SleepAfter)
	}
	if strings.TrimSpace(p.SoundID) == "" {
		return fmt.Errorf("%w: sound id is required", ErrInvalidParams)
	}
	return nil
}

// Fetcher turns a sound's video list into a table sorted by posting time.
type Fetcher struct {
	opener   tiktok.Opener
	maxCount int
}

func NewFetcher(opener tiktok.Opener, maxCount int) *Fetcher {
	return &Fetcher{opener: opener, maxCount: maxCount}
}

// Fetch opens one session, collects up to Count videos and closes it again.
// Any error from the platform fails the whole fetch; no partial table is
// returned.
func (f *Fetcher) Fetch(ctx context.Context, p FetchParams) (*table.Table, error) {
	if err := p.validate(f.maxCount); err != nil {
		return nil, err
	}
	soundID := strings.TrimSpace(p.SoundID)
	log := logger.New().WithComponent("pipeline.fetch").WithField("sound_id", soundID).WithField("count", p.Count)
	start := time.Now()

	sess, err := f.opener.Open(ctx, tiktok.SessionOptions{
		Sessions:   1,
		SleepAfter: time.Duration(p.SleepAfter) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemoteFetch, err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.WithError(err).Warn("session close failed")
		}
	}()

	recs := make([]record.Flat, 0, p.Count)
	for v, err := range sess.SoundVideos(ctx, soundID, p.Count) {
		if err != nil {
			log.WithError(err).WithField("received", len(recs)).Warn("fetch aborted")
			return nil, fmt.Errorf("%w: %w", ErrRemoteFetch, err)
		}
		flat, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("video %q: %w", v.ID(), err)
		}
		log.WithField("video_id", v.ID()).WithField("leaves", v.Raw.LeafCount()).Debug("video flattened")
		recs = append(recs, flat)
		if len(recs) >= p.Count {
			break
		}
	}

	t := table.FromRecords(recs)
	if t.Len() == 0 {
		t.Columns = []string{table.TimeColumn}
	}
	if err := t.ParseTimes(); err != nil {
		return nil, err
	}
	if err := t.SortByTime(); err != nil {
		return nil, err
	}
	log.WithField("rows", t.Len()).WithField("duration_ms", time.Since(start).Milliseconds()).Info("fetch finished")
	return t, nil
}

// normalize stamps posted_time_jst onto the raw record and flattens it.
func normalize(v tiktok.Video) (record.Flat, error) {
	raw := v.Raw
	if raw == nil {
		raw = record.Map{}
	}
	epoch, err := record.CreateTime(raw)
	if err != nil {
		return nil, err
	}
	raw.Set(table.TimeColumn, record.NormalizeJST(epoch))
	return record.Flatten(raw, ""), nil
}

// Importer reads a previously exported table. Nothing is validated or
// reordered; the file is taken as equivalent to a fetch result.
type Importer struct{}

func NewImporter() *Importer {
	return &Importer{}
}

// Import picks the codec from the file name (.xlsx, otherwise CSV).
func (i *Importer) Import(r io.Reader, filename string) (*table.Table, error) {
	format := dataset.FormatFromName(filename)
	t, err := dataset.Read(r, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedImport, filename, err)
	}
	logger.New().WithComponent("pipeline.import").
		WithField("file", filename).
		WithField("format", string(format)).
		WithField("rows", t.Len()).
		WithField("columns", len(t.Columns)).
		Info("import finished")
	return t, nil
}
