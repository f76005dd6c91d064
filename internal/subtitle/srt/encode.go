// Package srt turns transcripts into SubRip subtitle documents.
package srt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/video-stream/autosub/internal/transcript"
)

// Cue is a single numbered subtitle entry. Start and End are milliseconds.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// SpanError reports a transcript segment whose end precedes its start.
type SpanError struct {
	Kind  string
	Index int
	Start int64
	End   int64
}

func (e *SpanError) Error() string {
	return fmt.Sprintf("invalid %s span at %d: start %d > end %d", e.Kind, e.Index, e.Start, e.End)
}

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+`)

// Encode renders a transcript as SRT, choosing word-level chunking, utterance
// cues or evenly split sentences depending on what the result carries.
func Encode(result *transcript.Result) (string, error) {
	if result == nil {
		return "", fmt.Errorf("encode srt: nil transcript")
	}
	switch result.Shape() {
	case transcript.ShapeWords:
		return EncodeWords(result.Words)
	case transcript.ShapeUtterances:
		return EncodeUtterances(result.Utterances)
	default:
		return EncodeSentences(result.Text, result.Duration()), nil
	}
}

// EncodeWords chunks words and renders one cue per chunk.
func EncodeWords(words []transcript.Word) (string, error) {
	for i, w := range words {
		if w.Start > w.End {
			return "", &SpanError{Kind: "word", Index: i, Start: w.Start, End: w.End}
		}
	}
	chunks, err := ChunkWords(words)
	if err != nil {
		return "", err
	}
	cues := make([]Cue, len(chunks))
	for i, c := range chunks {
		cues[i] = Cue{Index: i + 1, Start: float64(c.Start), End: float64(c.End), Text: c.Text}
	}
	return Render(cues), nil
}

// EncodeUtterances renders one cue per utterance, prefixed with the speaker
// label when there is one.
func EncodeUtterances(utterances []transcript.Utterance) (string, error) {
	cues := make([]Cue, 0, len(utterances))
	for i, u := range utterances {
		if u.Start > u.End {
			return "", &SpanError{Kind: "utterance", Index: i, Start: u.Start, End: u.End}
		}
		text := u.Text
		if u.Speaker != "" {
			text = "Speaker " + u.Speaker + ": " + text
		}
		cues = append(cues, Cue{Index: i + 1, Start: float64(u.Start), End: float64(u.End), Text: text})
	}
	return Render(cues), nil
}

// EncodeSentences splits text on sentence terminators and spreads durationMs
// evenly across the sentences. A zero duration yields zero-length cues.
func EncodeSentences(text string, durationMs float64) string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return ""
	}
	per := durationMs / float64(len(sentences))
	cues := make([]Cue, len(sentences))
	for i, s := range sentences {
		cues[i] = Cue{
			Index: i + 1,
			Start: float64(i) * per,
			End:   float64(i+1) * per,
			Text:  s,
		}
	}
	return Render(cues)
}

// SplitSentences returns the sentences of text with their terminators kept.
// Text without any terminator is returned as a single sentence.
func SplitSentences(text string) []string {
	matches := sentenceRe.FindAllString(text, -1)
	var sentences []string
	for _, m := range matches {
		if s := strings.TrimSpace(m); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		if s := strings.TrimSpace(text); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// Render serializes cues, each block terminated by a blank line.
func Render(cues []Cue) string {
	var sb strings.Builder
	for _, cue := range cues {
		fmt.Fprintf(&sb, "%d\n", cue.Index)
		fmt.Fprintf(&sb, "%s --> %s\n", FormatTimestamp(cue.Start), FormatTimestamp(cue.End))
		sb.WriteString(cue.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}
