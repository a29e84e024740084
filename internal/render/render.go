// Package render draws controller views as an HTML page. All text, whether
// typed by the user or produced by a scrape, goes through html/template's
// contextual escaping and is never inserted as raw markup.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"math"

	"github.com/raysh454/scrapeform/internal/controller"
	"github.com/raysh454/scrapeform/internal/model"
)

// Renderer executes the page template.
type Renderer struct {
	cfg  Config
	tmpl *template.Template
}

type elementOption struct {
	Value   model.ElementType
	Checked bool
}

type formatOption struct {
	Value    model.OutputFormat
	Selected bool
}

type pageData struct {
	Title          string
	View           controller.View
	Elements       []elementOption
	Formats        []formatOption
	RefreshSeconds int
	Filename       string
}

func New(cfg Config) (*Renderer, error) {
	def := DefaultConfig()
	if cfg.Title == "" {
		cfg.Title = def.Title
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = def.RefreshInterval
	}
	if cfg.CopiedLabel == "" {
		cfg.CopiedLabel = def.CopiedLabel
	}

	tmpl, err := template.New("page").Parse(pageHTML)
	if err != nil {
		return nil, fmt.Errorf("parsing page template: %w", err)
	}
	return &Renderer{cfg: cfg, tmpl: tmpl}, nil
}

// Render writes the page for v to w.
func (r *Renderer) Render(w io.Writer, v controller.View) error {
	data := pageData{
		Title:    r.cfg.Title,
		View:     v,
		Filename: v.Format.Filename(),
	}
	for _, et := range model.ElementTypes {
		data.Elements = append(data.Elements, elementOption{Value: et, Checked: v.Input.Checked(et)})
	}
	for _, f := range model.Formats {
		data.Formats = append(data.Formats, formatOption{Value: f, Selected: f == v.Format})
	}
	if v.Loading || v.CopyLabel == r.cfg.CopiedLabel {
		data.RefreshSeconds = int(math.Ceil(r.cfg.RefreshInterval.Seconds()))
	}

	// Render into a buffer so a template failure never leaves a half page.
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// EscapeText returns s with HTML markup characters escaped, the same way
// the page shows it.
func EscapeText(s string) string {
	return template.HTMLEscapeString(s)
}

const pageHTML = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    {{if .RefreshSeconds}}<meta http-equiv="refresh" content="{{.RefreshSeconds}}">{{end}}
    <style>
        :root { --primary-color: #2563eb; --error-color: #dc2626; }
        body { font-family: system-ui, -apple-system, sans-serif; max-width: 960px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        h1 { color: #333; border-bottom: 2px solid var(--primary-color); padding-bottom: 10px; }
        .card { background: white; border-radius: 8px; padding: 20px; margin: 15px 0; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        label { display: block; margin: 8px 0 4px; font-weight: bold; }
        input[type=text], input[type=url] { width: 100%; padding: 8px; box-sizing: border-box; }
        .checkboxes label { display: inline-block; font-weight: normal; margin-right: 12px; }
        button { padding: 8px 16px; border: none; border-radius: 4px; cursor: pointer; background: var(--primary-color); color: white; }
        button[disabled] { opacity: 0.5; cursor: not-allowed; }
        .loading-spinner { margin: 10px 0; color: #666; }
        .hidden { display: none; }
        .results-header { display: flex; gap: 10px; align-items: center; }
        .results-header form { margin: 0; }
        pre { background: #f8f8f8; padding: 12px; overflow-x: auto; }
        .error { color: var(--error-color); }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>

    <div class="card">
        <form id="scraperForm" method="post" action="/scrape">
            <label for="url">URL</label>
            <input type="text" id="url" name="url" value="{{.View.Input.URL}}" placeholder="https://example.com">

            <label for="selector">Custom selector (optional)</label>
            <input type="text" id="selector" name="selector" value="{{.View.Input.Selector}}" placeholder=".article h2">

            <label>Elements</label>
            <div class="checkboxes">
                {{range .Elements}}
                <label><input type="checkbox" name="elements" value="{{.Value}}"{{if .Checked}} checked{{end}}> {{.Value}}</label>
                {{end}}
            </div>

            <input type="hidden" name="format" value="{{.View.Format}}">
            <p><button type="submit" id="submit"{{if .View.Loading}} disabled{{end}}>Scrape</button></p>
        </form>
        <div class="loading-spinner{{if not .View.Loading}} hidden{{end}}">Scraping...</div>
    </div>

    <div class="card">
        <div class="results-header">
            <form method="post" action="/format">
                <select id="formatSelect" name="format">
                    {{range .Formats}}
                    <option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Value}}</option>
                    {{end}}
                </select>
                <button type="submit">Apply</button>
            </form>
            <form method="post" action="/copy">
                <button type="submit" id="copyResults"{{if not .View.HasResult}} disabled{{end}}>{{.View.CopyLabel}}</button>
            </form>
            <form method="get" action="/download">
                <input type="hidden" name="format" value="{{.View.Format}}">
                <button type="submit" id="downloadResults" title="{{.Filename}}"{{if not .View.HasResult}} disabled{{end}}>Download</button>
            </form>
        </div>
        <div id="results">
            {{if .View.IsError}}<div class="error">{{.View.Output}}</div>{{else if .View.Output}}<pre>{{.View.Output}}</pre>{{end}}
        </div>
    </div>
</body>
</html>`
