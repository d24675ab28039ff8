package tiktok

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/record"
)

var (
	// ErrSessionClosed is yielded when iterating a closed session.
	ErrSessionClosed = errors.New("session closed")
	// ErrSequenceConsumed is yielded when a video sequence is ranged twice.
	ErrSequenceConsumed = errors.New("video sequence already consumed")
)

// SessionOptions configures one platform session.
type SessionOptions struct {
	// Sessions is the number of parallel sessions; only 1 is supported.
	Sessions int
	// SleepAfter is the pause between request bursts.
	SleepAfter time.Duration
}

// Video is one item of a sound's video list.
type Video struct {
	Raw record.Map
}

// ID returns the platform video id, if the record has one.
func (v Video) ID() string {
	if id, ok := v.Raw.Get("id"); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// Opener creates platform sessions.
type Opener interface {
	Open(ctx context.Context, opts SessionOptions) (Session, error)
}

// Session is a paced connection to the platform.
type Session interface {
	// SoundVideos lazily yields up to count videos that use soundID. The
	// sequence is single-use and stops at the first error.
	SoundVideos(ctx context.Context, soundID string, count int) iter.Seq2[Video, error]
	Close() error
}
