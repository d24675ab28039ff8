package tiktok

import (
	"context"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/record"
)

// Mock is an offline platform that serves a fixed, reproducible video list
// for any sound id. Mock sessions are not paced.
type Mock struct {
	// Total is how many videos each sound has.
	Total int
	// Newest is the createTime of the first video; later ones step back by Step.
	Newest time.Time
	Step   time.Duration
}

func NewMock() *Mock {
	return &Mock{
		Total:  120,
		Newest: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Step:   37 * time.Hour,
	}
}

func (m *Mock) Open(ctx context.Context, opts SessionOptions) (Session, error) {
	if opts.Sessions != 1 {
		return nil, fmt.Errorf("only a single session is supported, got %d", opts.Sessions)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &mockSession{mock: m}, nil
}

type mockSession struct {
	mock   *Mock
	closed atomic.Bool
}

func (s *mockSession) SoundVideos(ctx context.Context, soundID string, count int) iter.Seq2[Video, error] {
	var used atomic.Bool
	return func(yield func(Video, error) bool) {
		if used.Swap(true) {
			yield(Video{}, ErrSequenceConsumed)
			return
		}
		for i := 0; i < count && i < s.mock.Total; i++ {
			if s.closed.Load() {
				yield(Video{}, ErrSessionClosed)
				return
			}
			if err := ctx.Err(); err != nil {
				yield(Video{}, err)
				return
			}
			if !yield(Video{Raw: s.mock.video(soundID, i)}, nil) {
				return
			}
		}
	}
}

func (s *mockSession) Close() error {
	s.closed.Store(true)
	return nil
}

// video builds the i-th record. Counts are derived from i so every run of
// the same sound returns the same table.
func (m *Mock) video(soundID string, i int) record.Map {
	created := m.Newest.Add(-time.Duration(i) * m.Step).Unix()
	n := int64(i + 1)
	plays := 1000*n*n + 37*n

	stats := record.Map{}
	stats.Set("playCount", plays)
	stats.Set("diggCount", plays/12)
	stats.Set("commentCount", plays/180)
	stats.Set("shareCount", plays/240)
	stats.Set("collectCount", plays/90)

	authorStats := record.Map{}
	authorStats.Set("followerCount", 5000+n*311)
	authorStats.Set("followingCount", 40+n*3)
	authorStats.Set("heartCount", 90000+n*1021)
	authorStats.Set("videoCount", 10+n)

	author := record.Map{}
	author.Set("uniqueId", fmt.Sprintf("creator_%03d", i%17))
	author.Set("verified", i%5 == 0)

	music := record.Map{}
	music.Set("id", soundID)
	music.Set("title", "original sound")

	v := record.Map{
		"stats":       stats,
		"authorStats": authorStats,
		"author":      author,
		"music":       music,
	}
	v.Set("id", fmt.Sprintf("%s%04d", soundID[:min(len(soundID), 12)], i))
	v.Set("desc", fmt.Sprintf("mock video %d", i))
	v.Set("createTime", created)
	return v
}
