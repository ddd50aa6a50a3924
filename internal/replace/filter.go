package replace

import "strings"

// hallucinations are phrases Whisper-family models emit for silent or nearly
// silent audio. They are dropped only when they make up the entire
// transcription; inside a longer sentence they are legitimate speech.
var hallucinations = map[string]struct{}{
	"thank you":                  {},
	"thanks":                     {},
	"thanks for watching":        {},
	"thanks for listening":       {},
	"thank you for watching":     {},
	"thank you for listening":    {},
	"like and subscribe":         {},
	"subscribe":                  {},
	"see you next time":          {},
	"see you":                    {},
	"bye":                        {},
	"goodbye":                    {},
	"you":                        {},
	"merci":                      {},
	"merci d'avoir regardé":      {},
	"謝謝":                         {},
	"谢谢":                         {},
	"謝謝觀看":                       {},
	"谢谢观看":                       {},
	"ありがとう":                      {},
	"ありがとうございます":                 {},
	"ご視聴ありがとうございました":             {},
	"…":                          {},
}

// FilterHallucination returns "" when the whole transcript is a known
// silence hallucination, otherwise the text unchanged.
func FilterHallucination(text string) string {
	key := strings.ToLower(strings.TrimSpace(text))
	if _, ok := hallucinations[key]; ok {
		return ""
	}
	key = strings.TrimRight(key, ".")
	if key == "" {
		return ""
	}
	if _, ok := hallucinations[key]; ok {
		return ""
	}
	return text
}
