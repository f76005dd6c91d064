package refine

// instructions is prepended to the raw SRT in the single user message.
const instructions = `You are a professional subtitle editor. Improve the readability of the following SRT subtitles.

Rules:
- Keep every timestamp exactly as it is; do not shift, merge or drop timings.
- Use one or two lines per cue.
- Keep lines to about 42 characters.
- Break lines at natural pauses in speech.
- Do not split grammatical clauses across lines when it can be avoided.
- Return only the SRT content, with no commentary, headings or code fences.

Subtitles:
`

// BuildPrompt returns the full refinement prompt for rawSRT.
func BuildPrompt(rawSRT string) string {
	return instructions + rawSRT
}
