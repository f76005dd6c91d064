package srt

import (
	"errors"
	"strings"

	"github.com/video-stream/autosub/internal/transcript"
)

const (
	// MaxChunkWords closes a chunk regardless of punctuation.
	MaxChunkWords = 20
	// minSoftBreakWords is the length a chunk must reach before a soft
	// punctuation mark may close it.
	minSoftBreakWords = 13
	// maxSoftBreakDistance is how many words may follow the last soft mark
	// for it to still count as a break point.
	maxSoftBreakDistance = 5
)

// ErrNoWords is returned when ChunkWords is given an empty word sequence.
var ErrNoWords = errors.New("chunk words: empty word sequence")

// Chunk is a group of consecutive words shown as one subtitle cue.
type Chunk struct {
	Text  string
	Start int64
	End   int64
	Words []transcript.Word
}

// ChunkWords groups words into subtitle chunks. A chunk closes after a word
// ending in a sentence terminator, after MaxChunkWords words, or once it holds
// at least 13 words and a comma, semicolon or colon appeared within the last
// five of them.
func ChunkWords(words []transcript.Word) ([]Chunk, error) {
	if len(words) == 0 {
		return nil, ErrNoWords
	}

	var chunks []Chunk
	var current *Chunk
	var text strings.Builder
	count, lastSoft := 0, 0

	for _, w := range words {
		if current == nil {
			current = &Chunk{Start: w.Start, End: w.End}
			text.Reset()
			count, lastSoft = 0, 0
		}
		if count > 0 {
			text.WriteByte(' ')
		}
		text.WriteString(w.Text)
		current.End = w.End
		current.Words = append(current.Words, w)
		count++
		if endsWithAny(w.Text, softMarks) {
			lastSoft = count
		}

		if shouldClose(w.Text, count, lastSoft) {
			current.Text = text.String()
			chunks = append(chunks, *current)
			current = nil
		}
	}

	if current != nil {
		current.Text = text.String()
		chunks = append(chunks, *current)
	}
	return chunks, nil
}

const (
	terminalMarks = ".!?"
	softMarks     = ",;:"
)

func shouldClose(word string, count, lastSoft int) bool {
	if endsWithAny(word, terminalMarks) {
		return true
	}
	if count >= minSoftBreakWords && lastSoft > 0 && count-lastSoft <= maxSoftBreakDistance {
		return true
	}
	return count >= MaxChunkWords
}

func endsWithAny(word, marks string) bool {
	if word == "" {
		return false
	}
	return strings.IndexByte(marks, word[len(word)-1]) >= 0
}
