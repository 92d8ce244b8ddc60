package notification

import "unicode/utf8"

// Split partitions text into consecutive chunks of at most maxSize characters.
//
// Sizes are counted in runes so a chunk never ends inside a UTF-8 sequence.
// An empty text yields a single empty chunk, and a non-positive maxSize yields
// the whole text as one chunk.
func Split(text string, maxSize int) []string {
	if text == "" {
		return []string{""}
	}
	if maxSize <= 0 {
		return []string{text}
	}

	n := utf8.RuneCountInString(text)
	chunks := make([]string, 0, (n+maxSize-1)/maxSize)

	start, count := 0, 0
	for i := range text {
		if count == maxSize {
			chunks = append(chunks, text[start:i])
			start, count = i, 0
		}
		count++
	}

	return append(chunks, text[start:])
}
