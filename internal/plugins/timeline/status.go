package timeline

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultStatus is the style key used when a status is blank or unknown.
const DefaultStatus = "pending"

// StatusStyle is the presentation of one status: a label and the CSS
// classes for text, background and hover border.
type StatusStyle struct {
	Key         string `yaml:"-"`
	Label       string `yaml:"label"`
	Text        string `yaml:"text"`
	Background  string `yaml:"background"`
	BorderHover string `yaml:"border_hover"`
}

// Classes joins the style's CSS classes.
func (s StatusStyle) Classes() string {
	return strings.Join([]string{s.Text, s.Background, s.BorderHover}, " ")
}

//go:embed statuses.yaml
var statusesYAML []byte

// statusStyles is read-only after package init.
var statusStyles = mustLoadStatusStyles(statusesYAML)

func loadStatusStyles(data []byte) (map[string]StatusStyle, error) {
	styles := make(map[string]StatusStyle)
	if err := yaml.Unmarshal(data, &styles); err != nil {
		return nil, fmt.Errorf("parsing status styles: %w", err)
	}
	if _, ok := styles[DefaultStatus]; !ok {
		return nil, fmt.Errorf("status styles: missing %q entry", DefaultStatus)
	}
	for key, s := range styles {
		s.Key = key
		styles[key] = s
	}
	return styles, nil
}

func mustLoadStatusStyles(data []byte) map[string]StatusStyle {
	styles, err := loadStatusStyles(data)
	if err != nil {
		panic(err)
	}
	return styles
}

// statusKey normalizes a backend status string ("On Progress", "on-progress")
// to a style key ("on_progress").
func statusKey(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// StyleFor returns the style for status, falling back to pending.
func StyleFor(status string) StatusStyle {
	if s, ok := statusStyles[statusKey(status)]; ok {
		return s
	}
	return statusStyles[DefaultStatus]
}

// StatusKeys returns every known status key, sorted.
func StatusKeys() []string {
	keys := make([]string, 0, len(statusStyles))
	for k := range statusStyles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
