package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"strings"
	"testing"
	"time"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/dataset"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/logger"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/record"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/table"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/tiktok"
)

type stubOpener struct {
	videos  []tiktok.Video
	failAt  int // yield an error instead of the video at this index; -1 never
	openErr error

	opened   []tiktok.SessionOptions
	closed   int
	askedFor int
}

func (o *stubOpener) Open(ctx context.Context, opts tiktok.SessionOptions) (tiktok.Session, error) {
	if o.openErr != nil {
		return nil, o.openErr
	}
	o.opened = append(o.opened, opts)
	return &stubSession{o: o}, nil
}

type stubSession struct{ o *stubOpener }

func (s *stubSession) SoundVideos(ctx context.Context, soundID string, count int) iter.Seq2[tiktok.Video, error] {
	s.o.askedFor = count
	return func(yield func(tiktok.Video, error) bool) {
		for i, v := range s.o.videos {
			if i >= count {
				return
			}
			if i == s.o.failAt {
				yield(tiktok.Video{}, errors.New("connection reset"))
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

func (s *stubSession) Close() error {
	s.o.closed++
	return nil
}

func video(id string, createTime int64, plays int64) tiktok.Video {
	stats := record.Map{}
	stats.Set("playCount", plays)
	m := record.Map{"stats": stats}
	m.Set("id", id)
	m.Set("createTime", createTime)
	m.Set("duetEnabled", plays%20 == 0)
	return tiktok.Video{Raw: m}
}

// sameValue compares an exported cell with its imported counterpart. Text
// and times are compared as written, since digit-only ids come back as
// numbers; numbers compare by value and booleans must stay booleans.
func sameValue(want, got any) bool {
	switch want.(type) {
	case string, time.Time:
		return dataset.FormatCell(want) == dataset.FormatCell(got)
	}
	if wf, ok := table.ToFloat(want); ok {
		gf, ok := table.ToFloat(got)
		return ok && wf == gf
	}
	return want == got
}

func quiet(t *testing.T) {
	t.Helper()
	logger.SetOutput(io.Discard)
}

func TestFetch_FewerRecordsThanCount(t *testing.T) {
	quiet(t)
	o := &stubOpener{failAt: -1, videos: []tiktok.Video{
		video("c", 1700000300, 30),
		video("a", 1700000100, 10),
		video("b", 1700000200, 20),
	}}
	tbl, err := NewFetcher(o, 0).Fetch(context.Background(), FetchParams{Count: 5, SleepAfter: 5, SoundID: "123"})
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", tbl.Len())
	}
	var ids []string
	for _, r := range tbl.Rows {
		ids = append(ids, r["id"].(string))
	}
	if strings.Join(ids, ",") != "a,b,c" {
		t.Fatalf("rows not sorted ascending: %v", ids)
	}
	if got := tbl.Rows[0][table.TimeColumn].(time.Time).In(record.JST).Format(record.TimeLayout); got != "2023-11-15 07:15:00" {
		t.Fatalf("posted_time_jst: %q", got)
	}
	if tbl.Columns[0] != table.TimeColumn || !tbl.HasColumn("stats_playCount") {
		t.Fatalf("unexpected columns: %v", tbl.Columns)
	}
	if len(o.opened) != 1 || o.opened[0].Sessions != 1 || o.opened[0].SleepAfter != 5*time.Second {
		t.Fatalf("unexpected session options: %+v", o.opened)
	}
	if o.closed != 1 || o.askedFor != 5 {
		t.Fatalf("closed=%d askedFor=%d", o.closed, o.askedFor)
	}
}

func TestFetch_LogsLeafCounts(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.Configure("debug", "production")
	t.Cleanup(func() {
		logger.Configure("", "")
		logger.SetOutput(io.Discard)
	})

	o := &stubOpener{failAt: -1, videos: []tiktok.Video{video("a", 1700000100, 10)}}
	if _, err := NewFetcher(o, 0).Fetch(context.Background(), FetchParams{Count: 1, SleepAfter: 1, SoundID: "1"}); err != nil {
		t.Fatal(err)
	}

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("not a JSON log line %q: %v", line, err)
		}
		if entry["msg"] != "video flattened" {
			continue
		}
		// id, createTime, duetEnabled, stats_playCount and posted_time_jst
		if entry["video_id"] != "a" || entry["leaves"] != float64(5) {
			t.Fatalf("unexpected flatten entry: %v", entry)
		}
		return
	}
	t.Fatalf("no flatten entry logged:\n%s", buf.String())
}

func TestFetch_StopsAtCount(t *testing.T) {
	quiet(t)
	o := &stubOpener{failAt: -1}
	for i := 0; i < 10; i++ {
		o.videos = append(o.videos, video("v", int64(1700000000+i), int64(i)))
	}
	tbl, err := NewFetcher(o, 0).Fetch(context.Background(), FetchParams{Count: 4, SleepAfter: 1, SoundID: "123"})
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Len() != 4 {
		t.Fatalf("expected 4 rows, got %d", tbl.Len())
	}
}

func TestFetch_MissingCreateTimeIsEpoch(t *testing.T) {
	quiet(t)
	m := record.Map{}
	m.Set("id", "x")
	o := &stubOpener{failAt: -1, videos: []tiktok.Video{{Raw: m}}}
	tbl, err := NewFetcher(o, 0).Fetch(context.Background(), FetchParams{Count: 1, SleepAfter: 1, SoundID: "123"})
	if err != nil {
		t.Fatal(err)
	}
	got := dataset.FormatCell(tbl.Rows[0][table.TimeColumn])
	if got != "1970-01-01 09:00:00" {
		t.Fatalf("posted_time_jst: %q", got)
	}
}

func TestFetch_ErrorFailsWholeFetch(t *testing.T) {
	quiet(t)
	o := &stubOpener{failAt: 2, videos: []tiktok.Video{
		video("a", 1, 1), video("b", 2, 2), video("c", 3, 3),
	}}
	tbl, err := NewFetcher(o, 0).Fetch(context.Background(), FetchParams{Count: 5, SleepAfter: 1, SoundID: "123"})
	if !errors.Is(err, ErrRemoteFetch) {
		t.Fatalf("expected ErrRemoteFetch, got %v", err)
	}
	if tbl != nil {
		t.Fatal("no partial table expected")
	}
	if o.closed != 1 {
		t.Fatalf("session should be closed after failure, closed=%d", o.closed)
	}
}

func TestFetch_OpenError(t *testing.T) {
	quiet(t)
	o := &stubOpener{openErr: errors.New("landing page status=403")}
	_, err := NewFetcher(o, 0).Fetch(context.Background(), FetchParams{Count: 1, SleepAfter: 1, SoundID: "123"})
	if !errors.Is(err, ErrRemoteFetch) {
		t.Fatalf("expected ErrRemoteFetch, got %v", err)
	}
}

func TestFetch_InvalidParams(t *testing.T) {
	quiet(t)
	cases := map[string]FetchParams{
		"zero count":     {Count: 0, SleepAfter: 1, SoundID: "1"},
		"over max":       {Count: 11, SleepAfter: 1, SoundID: "1"},
		"zero sleep":     {Count: 1, SleepAfter: 0, SoundID: "1"},
		"blank sound id": {Count: 1, SleepAfter: 1, SoundID: "  "},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			o := &stubOpener{failAt: -1}
			_, err := NewFetcher(o, 10).Fetch(context.Background(), p)
			if !errors.Is(err, ErrInvalidParams) {
				t.Fatalf("expected ErrInvalidParams, got %v", err)
			}
			if len(o.opened) != 0 {
				t.Fatal("no session should be opened for invalid params")
			}
		})
	}
}

func TestFetch_EmptyResult(t *testing.T) {
	quiet(t)
	tbl, err := NewFetcher(&stubOpener{failAt: -1}, 0).Fetch(context.Background(), FetchParams{Count: 3, SleepAfter: 1, SoundID: "1"})
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Len() != 0 || !tbl.HasColumn(table.TimeColumn) {
		t.Fatalf("expected empty table with time column, got %+v", tbl)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	quiet(t)
	o := &stubOpener{failAt: -1, videos: []tiktok.Video{
		video("7300000000000000001", 1700000100, 10),
		video("7300000000000000002", 1700000200, 20),
	}}
	fetched, err := NewFetcher(o, 0).Fetch(context.Background(), FetchParams{Count: 5, SleepAfter: 1, SoundID: "1"})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := dataset.WriteCSV(&buf, fetched); err != nil {
		t.Fatal(err)
	}

	imported, err := NewImporter().Import(&buf, "export.csv")
	if err != nil {
		t.Fatal(err)
	}
	if imported.Len() != fetched.Len() {
		t.Fatalf("rows: %d vs %d", imported.Len(), fetched.Len())
	}
	for i := range fetched.Rows {
		for _, c := range fetched.Columns {
			a, b := fetched.Rows[i][c], imported.Rows[i][c]
			if !sameValue(a, b) {
				t.Fatalf("row %d column %s: %#v vs %#v", i, c, a, b)
			}
		}
	}
	if cols := imported.NumericColumns(); len(cols) == 0 {
		t.Fatal("imported metrics should be numeric")
	}
}

func TestImport_Malformed(t *testing.T) {
	quiet(t)
	_, err := NewImporter().Import(strings.NewReader("a,b\n1\n"), "broken.csv")
	if !errors.Is(err, ErrMalformedImport) {
		t.Fatalf("expected ErrMalformedImport, got %v", err)
	}
	_, err = NewImporter().Import(strings.NewReader("not a workbook"), "broken.xlsx")
	if !errors.Is(err, ErrMalformedImport) {
		t.Fatalf("expected ErrMalformedImport for xlsx, got %v", err)
	}
}
