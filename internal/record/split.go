package record

import "unicode/utf8"

// Split cuts text into consecutive chunks of at most size characters. Concatenating the chunks yields text.
// Empty text yields no chunks.
func Split(text string, size int) []string {
	if size <= 0 {
		panic("record: chunk size must be positive")
	}
	if text == "" {
		return nil
	}

	chunks := make([]string, 0, (utf8.RuneCountInString(text)+size-1)/size)
	start, n := 0, 0
	for i := range text {
		if n == size {
			chunks = append(chunks, text[start:i])
			start, n = i, 0
		}
		n++
	}
	return append(chunks, text[start:])
}

// prefix returns the first n characters of s
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
