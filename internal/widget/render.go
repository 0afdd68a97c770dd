package widget

import (
	"html/template"
	"io"
	"net/url"
	"strings"
)

// Entry is one rendered result row.
type Entry struct {
	File        string
	Message     string
	Status      string
	CSVPath     string
	DownloadURL string // Empty when the outcome has no artifact
}

// Rendering is the display model of a successful response: either a lone
// notice or a list of entries.
type Rendering struct {
	Notice  string
	Entries []Entry
}

// HasList reports whether the rendering carries per-file entries.
func (r Rendering) HasList() bool { return len(r.Entries) > 0 }

// Render converts a success payload into a Rendering. Download links are
// built under downloadBase, e.g. "/download" or "http://host:10000/download".
func Render(pr *ProcessResponse, downloadBase string) Rendering {
	if pr == nil || len(pr.Results) == 0 {
		var notice string
		if pr != nil {
			notice = pr.Message
		}
		return Rendering{Notice: notice}
	}

	entries := make([]Entry, 0, len(pr.Results))
	for _, o := range pr.Results {
		e := Entry{
			File:    o.File,
			Message: o.Message,
			Status:  o.Status,
			CSVPath: o.CSVPath,
		}
		if o.CSVPath != "" {
			e.DownloadURL = DownloadLink(downloadBase, o.CSVPath)
		}
		entries = append(entries, e)
	}
	return Rendering{Entries: entries}
}

// DownloadLink joins base and csvPath, escaping each path segment on its
// own so "/" stays a separator: "a/b c.csv" becomes "<base>/a/b%20c.csv".
func DownloadLink(base, csvPath string) string {
	segments := strings.Split(strings.TrimLeft(csvPath, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}

var resultsTemplate = template.Must(template.New("results").Parse(
	`{{if .Entries}}<ul class="results">
{{range .Entries}}  <li class="result{{if .Status}} result-{{.Status}}{{end}}"><span class="file">{{.File}}</span>: <span class="message">{{.Message}}</span>{{if .DownloadURL}} <a href="{{.DownloadURL}}" download>Download CSV</a>{{end}}</li>
{{end}}</ul>
{{else}}<p class="notice">{{.Notice}}</p>
{{end}}`))

// RenderHTML writes r as an HTML fragment. Every server-supplied value goes
// through html/template, so it can only ever appear as text.
func RenderHTML(w io.Writer, r Rendering) error {
	return resultsTemplate.Execute(w, r)
}
