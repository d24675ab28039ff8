package tiktok

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"

	"github.com/tidwall/gjson"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/record"
)

const itemListPath = "/api/music/item_list/"

type itemPage struct {
	videos  []Video
	cursor  string
	hasMore bool
}

// SoundVideos pages through the sound's item list. Every page request waits
// for the session pacer; the first one goes out immediately.
func (s *webSession) SoundVideos(ctx context.Context, soundID string, count int) iter.Seq2[Video, error] {
	var used atomic.Bool
	return func(yield func(Video, error) bool) {
		if used.Swap(true) {
			yield(Video{}, ErrSequenceConsumed)
			return
		}
		if s.closed.Load() {
			yield(Video{}, ErrSessionClosed)
			return
		}

		cursor := "0"
		sent := 0
		for sent < count {
			if err := s.wait(ctx); err != nil {
				yield(Video{}, err)
				return
			}
			if s.closed.Load() {
				yield(Video{}, ErrSessionClosed)
				return
			}
			page, err := s.itemList(ctx, soundID, cursor)
			if err != nil {
				yield(Video{}, err)
				return
			}
			s.log.WithField("sound_id", soundID).WithField("cursor", cursor).WithField("items", len(page.videos)).Debug("item list page")

			for _, v := range page.videos {
				if !yield(v, nil) {
					return
				}
				sent++
				if sent >= count {
					return
				}
			}
			if !page.hasMore || len(page.videos) == 0 || page.cursor == cursor {
				return
			}
			cursor = page.cursor
		}
	}
}

func (s *webSession) itemList(ctx context.Context, soundID, cursor string) (itemPage, error) {
	q := url.Values{}
	q.Set("aid", "1988")
	q.Set("app_name", "tiktok_web")
	q.Set("app_language", s.language)
	q.Set("browser_language", s.language)
	q.Set("browser_name", "Mozilla")
	q.Set("browser_platform", "Win32")
	q.Set("device_platform", "web_pc")
	q.Set("region", s.region)
	q.Set("count", strconv.Itoa(s.opts.PageSize))
	q.Set("cursor", cursor)
	q.Set("musicID", soundID)
	if s.msToken != "" {
		q.Set("msToken", s.msToken)
	}

	status, body, err := doRequest(ctx, s.http, http.MethodGet, s.opts.BaseURL+itemListPath+"?"+q.Encode(), s.headers("application/json, text/plain, */*"))
	if err != nil {
		return itemPage{}, err
	}
	if status < 200 || status >= 300 {
		return itemPage{}, fmt.Errorf("item_list status=%d body=%s", status, truncate(body, 200))
	}
	// blocked requests come back as 200 with an empty body
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return itemPage{}, fmt.Errorf("item_list returned no usable JSON (%d bytes); the platform may be blocking this client", len(body))
	}

	res := gjson.ParseBytes(body)
	if code := res.Get("statusCode").Int(); code != 0 {
		return itemPage{}, fmt.Errorf("item_list statusCode=%d msg=%s", code, res.Get("statusMsg").String())
	}

	page := itemPage{
		cursor:  res.Get("cursor").String(),
		hasMore: res.Get("hasMore").Bool(),
	}
	var decodeErr error
	res.Get("itemList").ForEach(func(_, item gjson.Result) bool {
		m, err := record.Decode([]byte(item.Raw))
		if err != nil {
			decodeErr = fmt.Errorf("decode item: %w", err)
			return false
		}
		page.videos = append(page.videos, Video{Raw: m})
		return true
	})
	if decodeErr != nil {
		return itemPage{}, decodeErr
	}
	return page, nil
}
