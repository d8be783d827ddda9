package utils

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTextShortInputSingleChunk(t *testing.T) {
	chunks := SplitText("brief note", 100, 10)
	require.Len(t, chunks, 1)
	assert.Equal(t, "brief note", chunks[0])
}

func TestSplitTextRespectsWindowSize(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("alpha beta gamma delta ", 10))
	chunks := SplitText(text, 50, 10)

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 50)
	}
	assert.True(t, strings.HasPrefix(text, chunks[0]))
	assert.True(t, strings.HasSuffix(text, chunks[len(chunks)-1]))
}

func TestSplitTextBreaksBetweenWords(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("alpha beta gamma delta ", 10))
	chunks := SplitText(text, 50, 10)

	for i, c := range chunks[:len(chunks)-1] {
		last, _ := utf8.DecodeLastRuneInString(c)
		assert.True(t, unicode.IsSpace(last), "chunk %d ends mid word: %q", i, c)
	}
}

func TestSplitTextOverlapCarriesContext(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta ", 10)
	chunks := SplitText(text, 50, 10)

	require.Greater(t, len(chunks), 1)
	head := []rune(chunks[1])[:10]
	assert.True(t, strings.HasSuffix(chunks[0], string(head)))
}

func TestSplitTextUnbrokenRunHardCut(t *testing.T) {
	text := strings.Repeat("x", 120)
	chunks := SplitText(text, 50, 0)

	require.Len(t, chunks, 3)
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplitTextClampsOversizedOverlap(t *testing.T) {
	text := strings.Repeat("word ", 40)
	chunks := SplitText(text, 10, 25)

	require.Greater(t, len(chunks), 1)
	assert.True(t, strings.HasSuffix(text, chunks[len(chunks)-1]))
}
