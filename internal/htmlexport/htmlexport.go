// Package htmlexport renders a repository's notes to a static HTML site
// (spec.md §6.8: "fukura export html produces a browsable, link-complete
// static site with no server required"). Markdown bodies are rendered
// with goldmark and the GFM extension, configured for full HTML
// documents rather than a custom node renderer.
package htmlexport

import (
	"bytes"
	"fmt"
	htmlutil "html"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"

	. "github.com/fukura-dev/fukura/internal/logging"
	"github.com/fukura-dev/fukura/internal/repo"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithXHTML(),
	),
)

// Options configures one export run.
type Options struct {
	OutDir string // destination directory, created if missing
	Title  string // site title shown in the index and page headers
}

// Export writes one HTML file per note plus an index.html listing them,
// sorted by most recently updated first.
func Export(r *repo.Repository, opts Options) error {
	if opts.Title == "" {
		opts.Title = "fukura notes"
	}
	if err := os.MkdirAll(opts.OutDir, 0750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	records, err := r.ListAllNotes()
	if err != nil {
		return fmt.Errorf("list notes: %w", err)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Note.UpdatedAt.After(records[j].Note.UpdatedAt)
	})

	for _, rec := range records {
		if err := writeNotePage(opts, rec); err != nil {
			return fmt.Errorf("render note %s: %w", rec.ObjectID, err)
		}
	}

	if err := writeIndexPage(opts, records); err != nil {
		return fmt.Errorf("render index: %w", err)
	}

	L_info("htmlexport: exported notes", "count", len(records), "dir", opts.OutDir)
	return nil
}

func writeNotePage(opts Options, rec repo.NoteRecord) error {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(rec.Note.Body), &body); err != nil {
		return fmt.Errorf("convert markdown: %w", err)
	}

	data := notePageData{
		SiteTitle: opts.Title,
		Title:     rec.Note.Title,
		ObjectID:  rec.ObjectID,
		Tags:      rec.Note.Tags,
		Author:    rec.Note.Author.Name,
		UpdatedAt: rec.Note.UpdatedAt.Format("2006-01-02 15:04"),
		Privacy:   string(rec.Note.Privacy),
		BodyHTML:  body.String(),
	}

	var out bytes.Buffer
	if err := notePageTmpl.Execute(&out, data); err != nil {
		return fmt.Errorf("execute note template: %w", err)
	}

	return os.WriteFile(filepath.Join(opts.OutDir, notePageFilename(rec.ObjectID)), out.Bytes(), 0640)
}

func writeIndexPage(opts Options, records []repo.NoteRecord) error {
	entries := make([]indexEntry, len(records))
	for i, rec := range records {
		entries[i] = indexEntry{
			Filename:  notePageFilename(rec.ObjectID),
			Title:     rec.Note.Title,
			Tags:      strings.Join(rec.Note.Tags, ", "),
			UpdatedAt: rec.Note.UpdatedAt.Format("2006-01-02 15:04"),
		}
	}

	data := indexPageData{SiteTitle: opts.Title, Notes: entries}

	var out bytes.Buffer
	if err := indexPageTmpl.Execute(&out, data); err != nil {
		return fmt.Errorf("execute index template: %w", err)
	}

	return os.WriteFile(filepath.Join(opts.OutDir, "index.html"), out.Bytes(), 0640)
}

// notePageFilename derives a stable, collision-free page name from an
// object id rather than a title, which may be empty or repeated.
func notePageFilename(objectID string) string {
	if len(objectID) > 16 {
		objectID = objectID[:16]
	}
	return "note-" + objectID + ".html"
}

type notePageData struct {
	SiteTitle string
	Title     string
	ObjectID  string
	Tags      []string
	Author    string
	UpdatedAt string
	Privacy   string
	BodyHTML  string
}

type indexEntry struct {
	Filename  string
	Title     string
	Tags      string
	UpdatedAt string
}

type indexPageData struct {
	SiteTitle string
	Notes     []indexEntry
}

var templateFuncs = template.FuncMap{
	"htmlEscape": htmlutil.EscapeString,
}

var notePageTmpl = template.Must(template.New("note").Funcs(templateFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{htmlEscape .Title}} - {{htmlEscape .SiteTitle}}</title>
</head>
<body>
<p><a href="index.html">&larr; back to index</a></p>
<h1>{{htmlEscape .Title}}</h1>
<p class="meta">
  {{if .Author}}by {{htmlEscape .Author}} &middot; {{end}}
  updated {{.UpdatedAt}} &middot; {{.Privacy}}
  {{if .Tags}} &middot; tags: {{range .Tags}}{{htmlEscape .}} {{end}}{{end}}
</p>
<hr>
{{.BodyHTML}}
</body>
</html>
`))

var indexPageTmpl = template.Must(template.New("index").Funcs(templateFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{htmlEscape .SiteTitle}}</title>
</head>
<body>
<h1>{{htmlEscape .SiteTitle}}</h1>
<ul>
{{range .Notes}}<li><a href="{{.Filename}}">{{htmlEscape .Title}}</a> <small>({{.UpdatedAt}}{{if .Tags}}, {{htmlEscape .Tags}}{{end}})</small></li>
{{end}}</ul>
</body>
</html>
`))
