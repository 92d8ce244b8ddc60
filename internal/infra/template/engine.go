package template

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"sort"
	"strings"
	"text/template"

	"notigram/internal/domain/notification"
)

var _ notification.Formatter = (*Engine)(nil)

// DefaultLayout renders the level, time, optional source and message, followed
// by one line per attribute. Its literal brackets suit plain text and HTML;
// MarkdownV2 chats need their own layout.
const DefaultLayout = `[{{upper .Level}}] {{.Time}}{{with .Source}} {{.}}{{end}}
{{.Message}}{{range .Attrs}}
- {{.Key}}={{.Value}}{{end}}`

const (
	timeLayout     = "2006-01-02 15:04:05.000"
	maxAttrValue   = 600
	escapedMarkers = "_*[]()~`>#+-=|{}.!"
)

type attr struct {
	Key   string
	Value string
}

// layoutData is what layouts see. Text fields are already escaped for the
// configured parse mode.
type layoutData struct {
	Time    string
	Level   string
	Source  string
	Message string
	Attrs   []attr
}

// Engine formats events with a text/template layout.
type Engine struct {
	layout *template.Template
	escape func(string) string
}

// NewEngine parses layout. An empty layout selects DefaultLayout. parseMode
// selects escaping so event text cannot break the chat's markup.
func NewEngine(layout, parseMode string) (*Engine, error) {
	if layout == "" {
		layout = DefaultLayout
	}

	tmpl, err := template.New("layout").Funcs(template.FuncMap{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
	}).Parse(layout)
	if err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}

	return &Engine{layout: tmpl, escape: escaperFor(parseMode)}, nil
}

// NewEngineFromFile loads the layout from path.
func NewEngineFromFile(path, parseMode string) (*Engine, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout %s: %w", path, err)
	}
	return NewEngine(string(raw), parseMode)
}

// Format renders the event.
func (e *Engine) Format(event notification.Event) (string, error) {
	data := layoutData{
		Level:   e.escape(event.Level),
		Source:  e.escape(event.Source),
		Message: e.escape(event.Message),
	}
	if !event.Time.IsZero() {
		data.Time = e.escape(event.Time.Format(timeLayout))
	}

	keys := make([]string, 0, len(event.Attrs))
	for k := range event.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := truncate(fmt.Sprint(event.Attrs[k]), maxAttrValue)
		data.Attrs = append(data.Attrs, attr{Key: e.escape(k), Value: e.escape(v)})
	}

	var buf bytes.Buffer
	if err := e.layout.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing layout: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func escaperFor(parseMode string) func(string) string {
	switch strings.ToLower(parseMode) {
	case "html":
		return html.EscapeString
	case "markdownv2":
		return escapeMarkdownV2
	default:
		return func(s string) string { return s }
	}
}

// escapeMarkdownV2 backslash-escapes every character MarkdownV2 reserves.
func escapeMarkdownV2(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(escapedMarkers, r) || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func truncate(s string, maxN int) string {
	r := []rune(s)
	if len(r) <= maxN {
		return s
	}
	return string(r[:maxN-3]) + "..."
}
