package web

import (
	"html/template"
	"net/http"
	"strconv"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/session"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/types"
)

type columnOption struct {
	Name     string
	Selected bool
}

type pageData struct {
	Flashes []session.Flash
	Notices []string

	Count       int
	SleepAfter  int
	SoundID     string
	MaxUploadMB int64

	Start string
	End   string

	HasTable         bool
	Source           string
	SourceLabel      string
	TotalRows        int
	FilteredRows     int
	Columns          []string
	Preview          [][]string
	PreviewTruncated bool
	Metrics          []columnOption
	Summary          *types.MetricsSummary
	ChartURL         string
}

func pageTemplate() *template.Template {
	return template.Must(template.New("page").Funcs(template.FuncMap{
		"num": func(f float64) string {
			return strconv.FormatFloat(f, 'f', -1, 64)
		},
		"fixed": func(f float64) string {
			return strconv.FormatFloat(f, 'f', 2, 64)
		},
	}).Parse(pageTpl))
}

var noticeTpl = template.Must(template.New("notice").Parse(`<!doctype html>
<meta charset="utf-8" />
<body style="font-family:system-ui,-apple-system,Segoe UI,Roboto;color:#666;padding:1rem">{{.}}</body>`))

// writeNotice answers a chart request with a short message instead of a chart.
func writeNotice(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = noticeTpl.Execute(w, msg)
}

const pageTpl = `<!doctype html>
<html lang="en">
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>Sound video analytics</title>
<style>
body{font-family:system-ui,-apple-system,Segoe UI,Roboto;max-width:1200px;margin:0 auto;padding:1rem}
.layout{display:grid;grid-template-columns:1fr 1fr;gap:16px;align-items:start}
.panel{border:1px solid #ddd;border-radius:8px;padding:12px;margin-bottom:12px}
label{display:block;margin:6px 0 2px}
.flash{padding:8px 12px;border-radius:6px;margin-bottom:8px}
.flash.info{background:#eef5ff}
.flash.error{background:#fdecea}
.notice{background:#fff8e1;padding:8px 12px;border-radius:6px;margin-bottom:8px}
.scroll{overflow:auto;max-height:420px}
table{border-collapse:collapse;font-size:12px}
th,td{border:1px solid #eee;padding:2px 6px;white-space:nowrap;text-align:left}
th{background:#fafafa;position:sticky;top:0}
iframe{width:100%;height:540px;border:0}
.muted, small{color:#666}
</style>
<h1>Sound video analytics</h1>

{{range .Flashes}}<div class="flash {{.Kind}}">{{.Message}}</div>{{end}}
{{range .Notices}}<div class="notice">{{.}}</div>{{end}}

<div class="layout">
  <form class="panel" method="post" action="/fetch">
    <h3>Fetch</h3>
    <label for="count">Videos to fetch</label>
    <input id="count" name="count" type="number" min="1" value="{{.Count}}" required>
    <label for="sleep_after">Seconds between requests</label>
    <input id="sleep_after" name="sleep_after" type="number" min="1" value="{{.SleepAfter}}" required>
    <label for="sound_id">Sound ID</label>
    <input id="sound_id" name="sound_id" type="text" value="{{.SoundID}}" required>
    <p><button type="submit">Fetch videos</button></p>
  </form>

  <form class="panel" method="post" action="/import" enctype="multipart/form-data">
    <h3>Import</h3>
    <label for="file">Previously exported CSV or XLSX (max {{.MaxUploadMB}} MB)</label>
    <input id="file" name="file" type="file" accept=".csv,.xlsx" required>
    <p><button type="submit">Import file</button></p>
  </form>
</div>

{{if .HasTable}}
<section class="panel">
  <h3>{{.SourceLabel}}</h3>
  <form method="get" action="/">
    <input type="hidden" name="cols" value="1">
    <label for="start">Start</label>
    <input id="start" name="start" type="date" value="{{.Start}}">
    <label for="end">End</label>
    <input id="end" name="end" type="date" value="{{.End}}">
    <label for="col">Metrics</label>
    <select id="col" name="col" multiple size="8">
      {{range .Metrics}}<option value="{{.Name}}"{{if .Selected}} selected{{end}}>{{.Name}}</option>{{end}}
    </select>
    <p>
      <button type="submit">Apply</button>
      <a href="/export.csv">Export CSV</a> · <a href="/export.xlsx">Export XLSX</a>
    </p>
  </form>
  <small>{{.FilteredRows}} of {{.TotalRows}} rows between {{.Start}} and {{.End}} (JST)</small>
</section>

{{with .Summary}}
<section class="panel">
  <h3>Summary</h3>
  <table>
    <tr><th>metric</th><th>count</th><th>min</th><th>max</th><th>mean</th><th>latest</th></tr>
    {{range .Metrics}}<tr><td>{{.Column}}</td><td>{{.Count}}</td><td>{{num .Min}}</td><td>{{num .Max}}</td><td>{{fixed .Mean}}</td><td>{{num .Latest}}</td></tr>{{end}}
  </table>
  {{if .From}}<small>{{.From}} to {{.To}}</small>{{end}}
</section>
{{end}}

<section class="panel">
  <h3>Chart</h3>
  <iframe src="{{.ChartURL}}" title="metrics over time"></iframe>
</section>

<section class="panel">
  <h3>Data</h3>
  {{if .Preview}}
  <div class="scroll">
  <table>
    <tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
    {{range .Preview}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}
  </table>
  </div>
  {{if .PreviewTruncated}}<small>Showing the first rows only. Export to see everything.</small>{{end}}
  {{else}}
  <small>No rows in this date range.</small>
  {{end}}
</section>
{{else}}
<p class="muted">Fetch videos for a sound or import an earlier export to get started.</p>
{{end}}
</html>
`
