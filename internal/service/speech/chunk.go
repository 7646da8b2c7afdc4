package speech

import (
	"strings"
	"unicode"
)

const maxChunkLength = 100

// SplitChunks cuts text into pieces of at most limit runes. Cuts prefer
// sentence punctuation, then whitespace, and fall back to a hard cut.
func SplitChunks(text string, limit int) []string {
	var chunks []string
	rest := []rune(strings.TrimSpace(text))
	for len(rest) > 0 {
		if len(rest) <= limit {
			chunks = appendChunk(chunks, rest)
			break
		}

		cut := lastIndexFunc(rest[:limit], isSentenceEnd)
		if cut < 0 {
			cut = lastIndexFunc(rest[:limit], unicode.IsSpace)
		}
		if cut < 0 {
			cut = limit - 1
		}
		chunks = appendChunk(chunks, rest[:cut+1])
		rest = []rune(strings.TrimLeftFunc(string(rest[cut+1:]), unicode.IsSpace))
	}
	return chunks
}

func appendChunk(chunks []string, r []rune) []string {
	if s := strings.TrimSpace(string(r)); s != "" {
		return append(chunks, s)
	}
	return chunks
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', ';', ':', ',', '。', '！', '？', '；', '，', '\n':
		return true
	}
	return false
}

func lastIndexFunc(r []rune, f func(rune) bool) int {
	for i := len(r) - 1; i > 0; i-- {
		if f(r[i]) {
			return i
		}
	}
	return -1
}
