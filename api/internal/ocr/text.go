package ocr

import "strings"

// Instruction is the transcription prompt sent to vision LLM engines.
const Instruction = `Transcribe the exam question in this image exactly as written.
Keep the question stem and every answer option, one option per line, in the original order.
Write all mathematical expressions as LaTeX wrapped in $...$ (inline) or $$...$$ (display).
Do not solve the question, do not add comments, and do not wrap the output in code fences.`

// CleanText strips code fences that chat models put around plain answers.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], " $") {
			s = s[nl+1:] // language tag line, e.g. ```latex
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
