package compose

import (
	"fmt"
	"strings"
)

// PromptPrefix leads the recognized text when the add-prompt toggle is on.
const PromptPrefix = "Given the following multiple-choice question on the topic of physics, please read and understand the question and the four options provided. Then, identify and explain the single most correct answer out of the four options. Your explanation should include the reasoning behind why this option is correct and why the other options are not suitable.\n\n"

// Apply adds or strips the single leading PromptPrefix. Repeated calls with
// the same flag return the same text.
func Apply(text string, add bool) string {
	has := strings.HasPrefix(text, PromptPrefix)
	switch {
	case add && !has:
		return PromptPrefix + text
	case !add && has:
		return text[len(PromptPrefix):]
	default:
		return text
	}
}

// choiceMarkers are the glyphs OCR tends to produce for empty radio buttons.
var choiceMarkers = []string{
	" O ", "o ", "® ", "回 ", "D ",
	"o\n", "O\n", "®\n", "回\n", "D\n",
}

// NumberChoices replaces radio-button glyphs with "\n1. ".."\n4. ", cycling.
// The numbering runs per marker kind in the order above, one occurrence at a time.
func NumberChoices(text string) string {
	idx := 1
	for _, m := range choiceMarkers {
		for strings.Contains(text, m) {
			text = strings.Replace(text, m, fmt.Sprintf("\n%d. ", idx), 1)
			idx = idx%4 + 1
		}
	}
	return text
}
