package web

import (
	"bytes"
	"html/template"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	// :red[text] as produced by the log stream adapter
	directivePattern = regexp.MustCompile(`:(red|green|blue|orange)\[([^\]\n]*)\]`)
	tonePattern      = regexp.MustCompile(`^tone-(red|green|blue|orange)$`)
)

// Renderer turns agent markdown into sanitized HTML.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewRenderer builds a renderer with GFM, emoji shortcodes and colour
// directives enabled.
func NewRenderer() *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(tonePattern).OnElements("span")

	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				emoji.New(emoji.WithEmojis(Emojis), emoji.WithRenderingMethod(emoji.Unicode)),
			),
			// raw HTML is allowed through goldmark so the colour spans survive;
			// bluemonday removes everything else
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithUnsafe()),
		),
		policy: policy,
	}
}

// Render converts src to HTML. Colour directives become tone spans.
func (r *Renderer) Render(src string) template.HTML {
	src = directivePattern.ReplaceAllString(src, `<span class="tone-$1">$2</span>`)

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>") //nolint:gosec // G203: escaped above
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())) //nolint:gosec // G203: sanitized by bluemonday
}
