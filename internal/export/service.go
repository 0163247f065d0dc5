package export

import (
	"fmt"
	"time"

	"chronomind/api/internal/store"
)

// Digest renders a user's grouped tagged content in the requested format.
func Digest(req Request, userName string, groups []store.TagGroup) (*Result, error) {
	data := buildTemplateData(req, userName, groups)

	html, err := RenderDigestHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatHTML, "":
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(data.Title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return exportPDF(html, data.Title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
}

func buildTemplateData(req Request, userName string, groups []store.TagGroup) TemplateData {
	title := "Tagged Content"
	if req.Year != 0 {
		title = fmt.Sprintf("Tagged Content %d", req.Year)
	}

	data := TemplateData{
		Title:       title,
		UserName:    userName,
		Year:        req.Year,
		GeneratedAt: time.Now(),
	}

	for _, g := range groups {
		tg := TemplateGroup{
			TagName:        g.Tag.Name,
			HighlightCount: g.HighlightCount,
			Entries:        []TemplateEntry{},
		}
		for _, h := range g.Content {
			tg.Entries = append(tg.Entries, TemplateEntry{
				Text:      h.Highlight.Text,
				Section:   h.Source.Section,
				ItemTitle: h.Source.ItemTitle,
				Year:      h.Source.Year,
				CreatedAt: h.Highlight.CreatedAt,
			})
		}
		data.Groups = append(data.Groups, tg)
	}
	return data
}
