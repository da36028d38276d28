// Package parser is the codec between Markdown checklist lines and task
// records. It recognises the checkbox prefix, the due-date and priority
// markers, inline #tags, and the remote link marker in both its current
// link-label form and the legacy bracket-identifier form.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/gebo/internal/models"
)

// Marker grammar:
//
//	- [ ] Buy milk 📅 2026-09-01 ⏫ #errands [🔗](gebo://task/AQMkAD)
//	- [x] Old style #home [id:: AQMkAD]
var (
	checkboxRe = regexp.MustCompile(`^(\s*)- \[( |x|X)\] (.*)$`)
	dueRe      = regexp.MustCompile(`📅\s*(\d{4}-\d{2}-\d{2})`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
	linkRe     = regexp.MustCompile(`\[🔗\]\(gebo://task/([^)\s]+)\)`)
	legacyRe   = regexp.MustCompile(`\[id::\s*([^\]\s]+)\]`)
	spaceRe    = regexp.MustCompile(`\s{2,}`)
)

const (
	highMarker = "⏫"
	lowMarker  = "🔽"
	dueMarker  = "📅"
)

// ParseDocument extracts every checklist line from text. Line indices are
// zero-based and valid only for this snapshot of the document.
func ParseDocument(doc, text string) []models.LocalTask {
	var out []models.LocalTask
	for i, line := range strings.Split(text, "\n") {
		t, ok := ParseLine(line)
		if !ok {
			continue
		}
		t.Doc = doc
		t.Line = i
		out = append(out, t)
	}
	return out
}

// ParseLine parses a single checklist line. ok is false for anything that
// is not a checkbox item.
func ParseLine(line string) (models.LocalTask, bool) {
	m := checkboxRe.FindStringSubmatch(line)
	if m == nil {
		return models.LocalTask{}, false
	}

	inner := m[3]
	t := models.LocalTask{
		Text:     inner,
		Raw:      line,
		Done:     m[2] == "x" || m[2] == "X",
		Priority: models.PriorityNormal,
	}

	if dm := dueRe.FindStringSubmatch(inner); dm != nil {
		t.Due = dm[1]
	}
	if strings.Contains(inner, highMarker) {
		t.Priority = models.PriorityHigh
	} else if strings.Contains(inner, lowMarker) {
		t.Priority = models.PriorityLow
	}
	for _, tm := range tagRe.FindAllStringSubmatch(inner, -1) {
		t.Tags = append(t.Tags, tm[1])
	}
	if lm := linkRe.FindStringSubmatch(inner); lm != nil {
		t.RemoteID = lm[1]
	} else if lm := legacyRe.FindStringSubmatch(inner); lm != nil {
		t.RemoteID = lm[1]
	}

	return t, true
}

// NormalizeTitle strips every known metadata and link marker from text,
// leaving only the bare title used for cross-side comparison.
func NormalizeTitle(text string) string {
	s := linkRe.ReplaceAllString(text, "")
	s = legacyRe.ReplaceAllString(s, "")
	s = dueRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, highMarker, "")
	s = strings.ReplaceAll(s, lowMarker, "")
	s = strings.ReplaceAll(s, dueMarker, "")
	s = tagRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ToRemoteDraft converts a local task into a remote create payload.
func ToRemoteDraft(t models.LocalTask) models.RemoteTaskDraft {
	return models.RemoteTaskDraft{
		Title:      NormalizeTitle(t.Text),
		Status:     models.StatusForCompleted(t.Done),
		Importance: t.Priority,
		Due:        t.Due,
	}
}

// ToLocalText renders a remote task as a checklist line carrying the link
// marker, suitable for appending to a document.
func ToLocalText(rt models.RemoteTask) string {
	var b strings.Builder
	b.WriteString("- [")
	if rt.Status.Completed() {
		b.WriteString("x")
	} else {
		b.WriteString(" ")
	}
	b.WriteString("] ")
	b.WriteString(strings.TrimSpace(rt.Title))
	switch rt.Importance {
	case models.PriorityHigh:
		b.WriteString(" " + highMarker)
	case models.PriorityLow:
		b.WriteString(" " + lowMarker)
	}
	if rt.Due != "" {
		b.WriteString(" " + dueMarker + " " + rt.Due)
	}
	b.WriteString(" " + linkMarker(rt.ID))
	return b.String()
}

// Merge applies the remote completion state onto the local raw line,
// preserving every local-only marker (tags, due, priority, link) the remote
// side has no concept of.
func Merge(lt models.LocalTask, rt models.RemoteTask) string {
	return SetCompleted(lt.Raw, rt.Status.Completed())
}

// SetCompleted rewrites the checkbox of raw. Non-checklist lines are
// returned unchanged.
func SetCompleted(raw string, done bool) string {
	m := checkboxRe.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	box := " "
	if done {
		box = "x"
	}
	return fmt.Sprintf("%s- [%s] %s", m[1], box, m[3])
}

// StripLink removes the remote link marker, in either form, from raw.
func StripLink(raw string) string {
	s := linkRe.ReplaceAllString(raw, "")
	s = legacyRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimRight(s, " ")
}

// AppendLink appends the current-form link marker for id to raw.
func AppendLink(raw, id string) string {
	return strings.TrimRight(raw, " ") + " " + linkMarker(id)
}

func linkMarker(id string) string {
	return fmt.Sprintf("[🔗](gebo://task/%s)", id)
}
