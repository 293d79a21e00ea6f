package compose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyIdempotent(t *testing.T) {
	for _, text := range []string{"", "What is 2+2?", "line1\nline2 $x^2$"} {
		once := Apply(text, true)
		assert.Equal(t, PromptPrefix+text, once)
		assert.Equal(t, once, Apply(once, true))
		assert.Equal(t, text, Apply(once, false))
		assert.Equal(t, text, Apply(Apply(once, false), false))
	}
}

func TestApplyStripsOnlyOneLeadingCopy(t *testing.T) {
	doubled := PromptPrefix + PromptPrefix + "Q"
	assert.Equal(t, PromptPrefix+"Q", Apply(doubled, false))
	assert.Equal(t, doubled, Apply(doubled, true))
}

func TestApplyIgnoresPrefixInTheMiddle(t *testing.T) {
	text := "Q: " + PromptPrefix
	assert.Equal(t, text, Apply(text, false))
	assert.True(t, strings.HasPrefix(Apply(text, true), PromptPrefix+"Q: "))
}

func TestNumberChoices(t *testing.T) {
	in := "Which is heavier?\nO\nlead\nO\nfeathers"
	assert.Equal(t, "Which is heavier?\n\n1. lead\n\n2. feathers", NumberChoices(in))
}

func TestNumberChoicesCyclesAfterFour(t *testing.T) {
	in := "® a ® b ® c ® d ® e"
	got := NumberChoices(in)
	assert.Equal(t, "\n1. a \n2. b \n3. c \n4. d \n1. e", got)
}

func TestNumberChoicesLeavesPlainTextAlone(t *testing.T) {
	assert.Equal(t, "Compute 3+4.", NumberChoices("Compute 3+4."))
}
