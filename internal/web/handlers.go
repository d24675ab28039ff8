package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/aggregator"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/chart"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/dataset"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/logger"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/pipeline"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/record"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/session"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/table"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/types"
)

const (
	defaultCount      = 5
	defaultSleepAfter = 5
)

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := s.session(w, r)
	tables := st.Snapshot()
	v, problems := parseView(r.URL.Query(), s.now())

	page := pageData{
		Flashes:     st.TakeFlashes(),
		Notices:     problems,
		Count:       defaultCount,
		SleepAfter:  defaultSleepAfter,
		SoundID:     s.Config.DefaultSoundID,
		Start:       v.StartRaw,
		End:         v.EndRaw,
		MaxUploadMB: s.Config.MaxUploadBytes >> 20,
	}
	if tables.SoundID != "" {
		page.SoundID = tables.SoundID
	}

	active, src := tables.Active()
	if active != nil {
		page.fill(active, src, tables, v)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, page); err != nil {
		logger.New().WithRequest(r).WithError(err).Error("render page")
	}
}

// fill adds the table-dependent parts of the page. Problems become notices;
// the page always renders.
func (p *pageData) fill(active *table.Table, src session.Source, tables session.Tables, v view) {
	p.HasTable = true
	p.Source = string(src)
	p.SourceLabel = sourceLabel(src, tables)
	p.TotalRows = active.Len()

	numeric := active.NumericColumns()
	selected := v.selection(numeric)
	for _, c := range numeric {
		p.Metrics = append(p.Metrics, columnOption{Name: c, Selected: slices.Contains(selected, c)})
	}
	p.ChartURL = "/chart?" + v.query(selected)

	filtered, err := active.FilterByTime(v.Start, v.End)
	if err != nil {
		p.Notices = append(p.Notices, err.Error())
		return
	}
	p.FilteredRows = filtered.Len()
	p.Columns = filtered.Columns
	for i, row := range filtered.Rows {
		if i >= previewRows {
			p.PreviewTruncated = true
			break
		}
		cells := make([]string, len(filtered.Columns))
		for j, c := range filtered.Columns {
			cells[j] = dataset.FormatCell(row[c])
		}
		p.Preview = append(p.Preview, cells)
	}

	if missing := missingColumns(filtered, selected); len(missing) > 0 {
		p.Notices = append(p.Notices, fmt.Sprintf("%v: %s", table.ErrMissingColumn, strings.Join(missing, ", ")))
		return
	}
	if len(selected) == 0 {
		return
	}
	sum, err := aggregator.Aggregate(filtered, selected)
	if err != nil {
		p.Notices = append(p.Notices, err.Error())
		return
	}
	ms := toMetricsSummary(sum)
	p.Summary = &ms
}

func (s *server) handleFetch(w http.ResponseWriter, r *http.Request) {
	st := s.session(w, r)
	reqLog := logger.New().WithRequest(r).WithSession(st.ID).WithField("handler", "fetch")
	defer http.Redirect(w, r, "/", http.StatusSeeOther)

	params, err := fetchParamsFromForm(r)
	if err != nil {
		st.AddFlash("error", err.Error())
		return
	}
	tbl, err := s.Fetcher.Fetch(r.Context(), params)
	if err != nil {
		reqLog.WithError(err).Warn("fetch failed")
		st.AddFlash("error", fetchErrorMessage(err))
		return
	}
	st.Update(func(t *session.Tables) {
		t.Data = tbl
		t.SoundID = params.SoundID
		t.Latest = session.SourceFetch
	})
	st.AddFlash("info", fmt.Sprintf("Fetched %d videos for sound %s.", tbl.Len(), params.SoundID))
}

func fetchParamsFromForm(r *http.Request) (pipeline.FetchParams, error) {
	if err := r.ParseForm(); err != nil {
		return pipeline.FetchParams{}, fmt.Errorf("invalid form: %w", err)
	}
	p := pipeline.FetchParams{SoundID: strings.TrimSpace(r.PostForm.Get("sound_id"))}
	var err error
	if p.Count, err = formInt(r, "count", defaultCount); err != nil {
		return p, err
	}
	if p.SleepAfter, err = formInt(r, "sleep_after", defaultSleepAfter); err != nil {
		return p, err
	}
	return p, nil
}

func formInt(r *http.Request, name string, def int) (int, error) {
	v := strings.TrimSpace(r.PostForm.Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number, got %q", name, v)
	}
	return n, nil
}

func fetchErrorMessage(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrInvalidParams):
		return err.Error()
	case errors.Is(err, pipeline.ErrRemoteFetch):
		return "Fetch failed, nothing was stored: " + err.Error()
	default:
		return "Fetch failed: " + err.Error()
	}
}

func (s *server) handleImport(w http.ResponseWriter, r *http.Request) {
	st := s.session(w, r)
	reqLog := logger.New().WithRequest(r).WithSession(st.ID).WithField("handler", "import")

	r.Body = http.MaxBytesReader(w, r.Body, s.Config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.Config.MaxUploadBytes); err != nil {
		st.AddFlash("error", fmt.Sprintf("Upload rejected: %v", err))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		st.AddFlash("error", "Choose a CSV or XLSX file to import.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	defer file.Close()

	tbl, err := s.Importer.Import(file, hdr.Filename)
	if err != nil {
		reqLog.WithError(err).Warn("import failed")
		st.AddFlash("error", "Import failed: "+err.Error())
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	st.Update(func(t *session.Tables) {
		t.Imported = tbl
		t.ImportName = hdr.Filename
		t.Latest = session.SourceImport
	})
	st.AddFlash("info", fmt.Sprintf("Imported %d rows from %s.", tbl.Len(), hdr.Filename))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) handleChart(w http.ResponseWriter, r *http.Request) {
	st := s.session(w, r)
	tables := st.Snapshot()
	active, src := tables.Active()
	if active == nil {
		writeNotice(w, "Fetch or import data to draw a chart.")
		return
	}
	v, problems := parseView(r.URL.Query(), s.now())
	if len(problems) > 0 {
		writeNotice(w, strings.Join(problems, "; "))
		return
	}
	filtered, err := active.FilterByTime(v.Start, v.End)
	if err != nil {
		writeNotice(w, err.Error())
		return
	}

	var buf bytes.Buffer
	err = chart.Plot(&buf, s.Renderer, filtered, sourceLabel(src, tables), v.selection(active.NumericColumns()))
	switch {
	case errors.Is(err, chart.ErrNoColumns):
		writeNotice(w, "Select at least one metric column to draw the chart.")
		return
	case errors.Is(err, table.ErrMissingColumn):
		writeNotice(w, err.Error())
		return
	case err != nil:
		logger.New().WithRequest(r).WithSession(st.ID).WithError(err).Error("render chart")
		writeNotice(w, "Chart could not be drawn: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	st := s.session(w, r)
	tables := st.Snapshot()
	active, src := tables.Active()
	if active == nil {
		httpError(w, http.StatusNotFound, "nothing to export yet")
		return
	}

	format := dataset.FormatFromName(r.URL.Path)
	var buf bytes.Buffer
	if err := dataset.Write(&buf, active, format); err != nil {
		logger.New().WithRequest(r).WithSession(st.ID).WithError(err).Error("export")
		httpError(w, http.StatusInternalServerError, "export failed")
		return
	}

	name := exportName(src, tables, s.now()) + "." + string(format)
	switch format {
	case dataset.FormatXLSX:
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	default:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, _ = w.Write(buf.Bytes())
}

func exportName(src session.Source, tables session.Tables, now time.Time) string {
	stamp := now.In(record.JST).Format("20060102_150405")
	if src == session.SourceFetch && tables.SoundID != "" {
		return fmt.Sprintf("sound_%s_%s", tables.SoundID, stamp)
	}
	return "videos_" + stamp
}

func (s *server) handleAPIFetch(w http.ResponseWriter, r *http.Request) {
	reqLog := logger.New().WithRequest(r).WithField("handler", "api.fetch")
	start := time.Now()

	var req types.FetchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}
	if req.Count == 0 {
		req.Count = defaultCount
	}
	if req.SleepAfter == 0 {
		req.SleepAfter = defaultSleepAfter
	}
	if strings.TrimSpace(req.SoundID) == "" {
		req.SoundID = s.Config.DefaultSoundID
	}

	tbl, err := s.Fetcher.Fetch(r.Context(), pipeline.FetchParams{Count: req.Count, SleepAfter: req.SleepAfter, SoundID: req.SoundID})
	switch {
	case errors.Is(err, pipeline.ErrInvalidParams):
		writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, pipeline.ErrRemoteFetch):
		reqLog.WithError(err).Warn("remote fetch failed")
		writeJSON(w, http.StatusBadGateway, types.ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		reqLog.WithError(err).Error("fetch failed")
		writeJSON(w, http.StatusInternalServerError, types.ErrorResponse{Error: err.Error()})
		return
	}

	q := make(map[string][]string)
	if req.Start != "" {
		q["start"] = []string{req.Start}
	}
	if req.End != "" {
		q["end"] = []string{req.End}
	}
	if req.Start != "" || req.End != "" {
		v, problems := parseView(q, s.now())
		if len(problems) > 0 {
			writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: strings.Join(problems, "; ")})
			return
		}
		if tbl, err = tbl.FilterByTime(v.Start, v.End); err != nil {
			writeJSON(w, http.StatusInternalServerError, types.ErrorResponse{Error: err.Error()})
			return
		}
	}

	resp := tableResponse(tbl)
	resp.SoundID = req.SoundID
	cols := req.Columns
	if len(cols) == 0 {
		cols = aggregator.DefaultSelection(tbl.NumericColumns())
	}
	if len(cols) > 0 {
		sum, err := aggregator.Aggregate(tbl, cols)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
			return
		}
		ms := toMetricsSummary(sum)
		resp.Summary = &ms
	}
	resp.DurationMs = time.Since(start).Milliseconds()
	writeJSON(w, http.StatusOK, resp)
}

func tableResponse(t *table.Table) types.TableResponse {
	resp := types.TableResponse{
		Rows:    t.Len(),
		Columns: t.Columns,
		Records: make([]map[string]any, 0, t.Len()),
	}
	for _, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for _, c := range t.Columns {
			rec[c] = jsonCell(row[c])
		}
		resp.Records = append(resp.Records, rec)
	}
	return resp
}

func jsonCell(v any) any {
	if ts, ok := v.(time.Time); ok {
		return ts.In(record.JST).Format(record.TimeLayout)
	}
	return v
}

func toMetricsSummary(s aggregator.Summary) types.MetricsSummary {
	out := types.MetricsSummary{Rows: s.Rows, Metrics: make([]types.MetricStats, 0, len(s.Metrics))}
	if !s.From.IsZero() {
		out.From = s.From.In(record.JST).Format(record.TimeLayout)
		out.To = s.To.In(record.JST).Format(record.TimeLayout)
	}
	for _, m := range s.Metrics {
		out.Metrics = append(out.Metrics, types.MetricStats{
			Column: m.Column,
			Count:  m.Count,
			Min:    m.Min,
			Max:    m.Max,
			Mean:   m.Mean,
			Latest: m.Latest,
		})
	}
	return out
}

func sourceLabel(src session.Source, tables session.Tables) string {
	switch src {
	case session.SourceFetch:
		return "Sound " + tables.SoundID
	case session.SourceImport:
		return "Imported " + tables.ImportName
	}
	return ""
}
