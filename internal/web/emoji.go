package web

import (
	"regexp"

	"github.com/yuin/goldmark-emoji/definition"
)

var shortcodePattern = regexp.MustCompile(`:([a-z0-9_+\-]+):`)

// Emojis is the GitHub shortcode set plus the Slack style aliases used in
// toasts, e.g. :robot_face:.
var Emojis = newEmojis()

func newEmojis() definition.Emojis {
	set := definition.Github().Clone()
	set.Add(definition.NewEmojis(
		definition.NewEmoji("robot face", []rune{0x1F916}, "robot_face"),
	))
	return set
}

// ExpandShortcodes replaces known :name: shortcodes in plain text with their
// unicode emoji. Unknown names are left alone.
func ExpandShortcodes(s string) string {
	return shortcodePattern.ReplaceAllStringFunc(s, func(code string) string {
		e, ok := Emojis.Get(code[1 : len(code)-1])
		if !ok || !e.IsUnicode() {
			return code
		}
		return string(e.Unicode)
	})
}
