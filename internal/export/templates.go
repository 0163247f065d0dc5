package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

// SafeHTML marks a string as safe HTML for template rendering.
func SafeHTML(s interface{}) template.HTML {
	switch v := s.(type) {
	case string:
		return template.HTML(v)
	case template.HTML:
		return v
	default:
		return template.HTML("")
	}
}

//go:embed templates/*.html
var templateFS embed.FS

var digestTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
		"safeHTML": SafeHTML,
	}

	templateContent, err := templateFS.ReadFile("templates/digest.html")
	if err != nil {
		// Fallback to built-in template if file not found
		digestTemplate = template.Must(template.New("digest").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	digestTemplate = template.Must(template.New("digest").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for digest template rendering.
type TemplateData struct {
	Title       string
	UserName    string
	Year        int
	GeneratedAt time.Time
	Groups      []TemplateGroup
}

// TemplateGroup is one tag with its collected passages.
type TemplateGroup struct {
	TagName        string
	HighlightCount int
	Entries        []TemplateEntry
}

// TemplateEntry is one tagged passage with its provenance.
type TemplateEntry struct {
	Text      string
	Section   string
	ItemTitle string
	Year      int
	CreatedAt time.Time
}

// RenderDigestHTML renders the tag digest template with provided data.
func RenderDigestHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
</head>
<body>
  <h1>{{.Title}}</h1>
  {{range .Groups}}
  <h2>{{.TagName}} ({{.HighlightCount}})</h2>
  {{range .Entries}}<blockquote>{{.Text}}<br><small>{{.ItemTitle}}</small></blockquote>{{end}}
  {{end}}
</body>
</html>`
