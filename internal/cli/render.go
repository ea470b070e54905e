package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Output formats shared by the reporting commands.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// styles holds the text output styles. The renderer follows the writer, so
// pipes and buffers get plain text.
type styles struct {
	title lipgloss.Style
	label lipgloss.Style
	dim   lipgloss.Style
	bad   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		label: r.NewStyle().Bold(true),
		dim:   r.NewStyle().Foreground(lipgloss.Color("241")),
		bad:   r.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

func validateOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (use text, json or yaml)", format)
}

// render writes v as JSON or YAML, or calls text for the text format.
func render(w io.Writer, format string, v any, text func(styles) error) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	case outputText:
		return text(newStyles(w))
	}
	return validateOutput(format)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
