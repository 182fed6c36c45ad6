package tts

import (
	"regexp"
	"strings"
)

// normalizeTextForTTS turns a markdown chat reply into plain speakable text.
func normalizeTextForTTS(text string) string {
	text = removeMarkdown(text)
	text = removeEmojis(text)
	text = multipleSpacesRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

var markdownReplacer = strings.NewReplacer(
	"**", "", // bold
	"__", "", // underline
	"~~", "", // strikethrough
	"`", "", // inline code
	"*", "", // italic
)

func removeMarkdown(text string) string {
	text = codeFenceRegex.ReplaceAllString(text, "")
	text = linkRegex.ReplaceAllString(text, "$1")
	text = headingRegex.ReplaceAllString(text, "")
	text = bulletRegex.ReplaceAllString(text, "")
	return markdownReplacer.Replace(text)
}

func removeEmojis(text string) string {
	return removeEmojiRegex.ReplaceAllString(text, "")
}

var (
	codeFenceRegex      = regexp.MustCompile("(?m)^```[^\n]*$")
	linkRegex           = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headingRegex        = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+`)
	bulletRegex         = regexp.MustCompile(`(?m)^\s*[-+]\s+`)
	removeEmojiRegex    = regexp.MustCompile(`[^\p{L}\p{N}\p{P}\p{Z}\p{Sm}\p{Sc}\s]`)
	multipleSpacesRegex = regexp.MustCompile(`\s+`)
)
