package transcribe

import (
	"strings"
	"unicode"
)

// AccuracyReport holds word-level error counts for one graded run of the
// diagnostic protocol (known test sentences spoken against a provider).
type AccuracyReport struct {
	WER           float64 // word error rate; 0.0 = perfect
	Substitutions int
	Insertions    int
	Deletions     int
	RefWords      int
}

// Grade maps the word error rate onto the letter scale used when grading
// transcription runs by hand.
func (r AccuracyReport) Grade() string {
	switch {
	case r.WER <= 0.02:
		return "A"
	case r.WER <= 0.05:
		return "B"
	case r.WER <= 0.10:
		return "C"
	case r.WER <= 0.20:
		return "D"
	default:
		return "F"
	}
}

// Score compares a hypothesis transcription against the reference sentence.
// Both are normalized (lowercased, punctuation stripped, whitespace
// collapsed) before alignment, so casing and punctuation differences do not
// count as errors.
func Score(reference, hypothesis string) AccuracyReport {
	refWords := normalizeWords(reference)
	hypWords := normalizeWords(hypothesis)

	n := len(refWords)
	if n == 0 {
		return AccuracyReport{}
	}
	m := len(hypWords)

	// Minimum edit distance over words.
	d := make([][]int, n+1)
	for i := range d {
		d[i] = make([]int, m+1)
		d[i][0] = i
	}
	for j := 0; j <= m; j++ {
		d[0][j] = j
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if refWords[i-1] == hypWords[j-1] {
				d[i][j] = d[i-1][j-1]
				continue
			}
			d[i][j] = min(d[i-1][j-1], min(d[i-1][j], d[i][j-1])) + 1
		}
	}

	// Backtrace into substitution, insertion, and deletion counts.
	var subs, ins, dels int
	i, j := n, m
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && refWords[i-1] == hypWords[j-1]:
			i--
			j--
		case i > 0 && j > 0 && d[i][j] == d[i-1][j-1]+1:
			subs++
			i--
			j--
		case i > 0 && d[i][j] == d[i-1][j]+1:
			dels++
			i--
		default:
			ins++
			j--
		}
	}

	return AccuracyReport{
		WER:           float64(subs+ins+dels) / float64(n),
		Substitutions: subs,
		Insertions:    ins,
		Deletions:     dels,
		RefWords:      n,
	}
}

// normalizeWords lowercases text, strips punctuation, and splits into words.
func normalizeWords(s string) []string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return r
	}, s)
	return strings.Fields(s)
}
