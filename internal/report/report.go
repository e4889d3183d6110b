// Package report renders the recorded analyses of a résumé as a
// downloadable document.
package report

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/muhammadolammi/atsresume/internal/prompts"
	"github.com/muhammadolammi/atsresume/internal/session"
)

const (
	singlePrefix   = "ATS_Analysis"
	completePrefix = "ATS_Complete_Analysis"
	maxTitleLen    = 30
)

// ErrNoAnalysis is returned when the résumé has nothing recorded to export.
var ErrNoAnalysis = errors.New("no analysis recorded")

//go:embed report.md.tmpl
var markdownSource string

var markdownTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"date": func(t time.Time) string { return t.Format("January 2, 2006 15:04 MST") },
}).Parse(markdownSource))

var (
	unsafeChars = regexp.MustCompile(`[^\w\s-]`)
	separators  = regexp.MustCompile(`[-\s]+`)
)

// Section is one action's outcome. Failed sections carry the failure reason
// as Text.
type Section struct {
	Action prompts.Action `json:"action"`
	Text   string         `json:"text"`
	Failed bool           `json:"failed,omitempty"`
}

type Report struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Resume      string    `json:"resume"`
	GeneratedAt time.Time `json:"generated_at"`
	Sections    []Section `json:"sections"`

	prefix string
}

// Single exports the outcome of one action on the résumé.
func Single(r session.Resume, action prompts.Action, at time.Time) (Report, error) {
	if !prompts.Known(action) {
		return Report{}, fmt.Errorf("%w: %q", session.ErrUnknownAction, action)
	}
	sec, ok := section(r, action)
	if !ok {
		return Report{}, fmt.Errorf("%w: %s / %s", ErrNoAnalysis, r.Name, action)
	}
	return Report{
		ID:          reportID(singlePrefix, at),
		Title:       string(action),
		prefix:      singlePrefix,
		Resume:      r.Name,
		GeneratedAt: at,
		Sections:    []Section{sec},
	}, nil
}

// Complete exports every recorded response and failure of the résumé in
// catalog order.
func Complete(r session.Resume, at time.Time) (Report, error) {
	rep := Report{
		ID:          reportID(completePrefix, at),
		Title:       "Complete Analysis",
		prefix:      completePrefix,
		Resume:      r.Name,
		GeneratedAt: at,
	}
	seen := make(map[prompts.Action]bool)
	for _, mode := range prompts.Modes() {
		for _, action := range prompts.Actions(mode) {
			if seen[action] {
				continue
			}
			seen[action] = true
			if sec, ok := section(r, action); ok {
				rep.Sections = append(rep.Sections, sec)
			}
		}
	}
	if len(rep.Sections) == 0 {
		return Report{}, fmt.Errorf("%w: %s", ErrNoAnalysis, r.Name)
	}
	return rep, nil
}

func section(r session.Resume, action prompts.Action) (Section, bool) {
	if text, ok := r.Responses[action]; ok {
		return Section{Action: action, Text: text}, true
	}
	if reason, ok := r.Failures[action]; ok {
		return Section{Action: action, Text: reason, Failed: true}, true
	}
	return Section{}, false
}

func reportID(prefix string, at time.Time) string {
	return fmt.Sprintf("%s_%s", prefix, at.Format("20060102_150405"))
}

// Filename is the download name of the Markdown rendering.
func (r Report) Filename() string {
	return fmt.Sprintf("%s_%s_%s.md", r.prefix, safeTitle(r.Title), r.GeneratedAt.Format("20060102_150405"))
}

func safeTitle(title string) string {
	s := unsafeChars.ReplaceAllString(strings.TrimSpace(title), "")
	s = separators.ReplaceAllString(s, "_")
	if len(s) > maxTitleLen {
		s = s[:maxTitleLen]
	}
	return s
}

// Markdown renders the report as a Markdown document.
func (r Report) Markdown() ([]byte, error) {
	var b strings.Builder
	if err := markdownTmpl.Execute(&b, r); err != nil {
		return nil, fmt.Errorf("failed to execute report template: %w", err)
	}
	return []byte(b.String()), nil
}
