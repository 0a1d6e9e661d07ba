// internal/application/presenter/report.go
package presenter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type Status string

const (
	StatusSuccess  Status = "success"
	StatusWarning  Status = "warning"
	StatusFailed   Status = "failed"
	StatusCritical Status = "critical"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat accepts "text" (or empty) and "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FormatText):
		return FormatText, nil
	case string(FormatJSON):
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("presenter: unknown output format %q", s)
	}
}

type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Report is the outcome of one command, independent of how it is printed.
type Report struct {
	Title           string   `json:"title"`
	Status          Status   `json:"status"`
	Fields          []Field  `json:"fields,omitempty"`
	Notes           []string `json:"notes,omitempty"`
	NextSteps       []string `json:"nextSteps,omitempty"`
	Troubleshooting []string `json:"troubleshooting,omitempty"`
	Err             error    `json:"-"`
}

// Add appends a field; empty values are skipped.
func (r *Report) Add(label, value string) *Report {
	if strings.TrimSpace(value) == "" {
		return r
	}
	r.Fields = append(r.Fields, Field{Label: label, Value: value})
	return r
}

func (r *Report) Note(format string, args ...any) *Report {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
	return r
}

// Value returns the first field with label, or "".
func (r Report) Value(label string) string {
	for _, f := range r.Fields {
		if f.Label == label {
			return f.Value
		}
	}
	return ""
}

// Render writes r to w in the given format.
func (r Report) Render(w io.Writer, format Format) error {
	if format == FormatJSON {
		return r.renderJSON(w)
	}
	return r.renderText(w)
}

func (r Report) renderJSON(w io.Writer) error {
	type wire struct {
		Report
		Error string `json:"error,omitempty"`
	}
	out := wire{Report: r}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (r Report) renderText(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "\n=== %s ===\n", r.Title)
	fmt.Fprintf(&b, "Status: %s\n", strings.ToUpper(string(r.Status)))

	width := 0
	for _, f := range r.Fields {
		if len(f.Label) > width {
			width = len(f.Label)
		}
	}
	for _, f := range r.Fields {
		fmt.Fprintf(&b, "  %-*s  %s\n", width+1, f.Label+":", f.Value)
	}

	if r.Err != nil {
		fmt.Fprintf(&b, "\nError: %v\n", r.Err)
	}
	writeList(&b, "Notes", r.Notes, false)
	writeList(&b, "Next steps", r.NextSteps, true)
	writeList(&b, "Troubleshooting", r.Troubleshooting, true)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeList(b *strings.Builder, heading string, items []string, numbered bool) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", heading)
	for i, it := range items {
		if numbered {
			fmt.Fprintf(b, "  %d. %s\n", i+1, it)
		} else {
			fmt.Fprintf(b, "  - %s\n", it)
		}
	}
}
