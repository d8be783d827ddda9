// Package utils holds small text helpers shared by the command handlers.
package utils

import "unicode"

// SplitText cuts text into rune windows of at most chunkSize, with the
// tail of each window repeated at the head of the next so boundary
// context survives embedding. Windows end on whitespace when the back
// half of the window has any, so words are not cut in the middle; a
// window without whitespace is cut hard. Overlap is clamped below the
// window size so the walk always advances.
func SplitText(text string, chunkSize, overlap int) []string {
	runes := []rune(text)
	if chunkSize <= 0 || len(runes) <= chunkSize {
		return []string{text}
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		cut := wordCut(runes, start, end)
		chunks = append(chunks, string(runes[start:cut]))
		next := cut - overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}

// wordCut returns the position after the last whitespace in the back
// half of the window, or end when that half is a single unbroken run.
func wordCut(runes []rune, start, end int) int {
	floor := start + (end-start)/2
	for i := end; i > floor; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}
