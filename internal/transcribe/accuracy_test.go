package transcribe

import (
	"math"
	"testing"
)

func TestScorePerfectMatch(t *testing.T) {
	r := Score("the quick brown fox", "the quick brown fox")
	if r.WER != 0 {
		t.Errorf("WER = %v, want 0", r.WER)
	}
	if r.Grade() != "A" {
		t.Errorf("Grade = %q, want A", r.Grade())
	}
}

func TestScoreIgnoresCaseAndPunctuation(t *testing.T) {
	r := Score("Hello, world!", "hello world")
	if r.WER != 0 {
		t.Errorf("WER = %v, want 0 (case and punctuation must not count)", r.WER)
	}
}

func TestScoreCountsErrors(t *testing.T) {
	tests := []struct {
		name     string
		ref, hyp string
		wantWER  float64
		subs     int
		ins      int
		dels     int
	}{
		{
			name:    "one substitution",
			ref:     "set a timer for ten minutes",
			hyp:     "set a timer for ben minutes",
			wantWER: 1.0 / 6.0,
			subs:    1,
		},
		{
			name:    "one deletion",
			ref:     "the quick brown fox",
			hyp:     "the brown fox",
			wantWER: 1.0 / 4.0,
			dels:    1,
		},
		{
			name:    "one insertion",
			ref:     "the brown fox",
			hyp:     "the very brown fox",
			wantWER: 1.0 / 3.0,
			ins:     1,
		},
		{
			name:    "everything wrong",
			ref:     "alpha beta",
			hyp:     "gamma delta",
			wantWER: 1.0,
			subs:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Score(tt.ref, tt.hyp)
			if math.Abs(r.WER-tt.wantWER) > 1e-9 {
				t.Errorf("WER = %v, want %v", r.WER, tt.wantWER)
			}
			if r.Substitutions != tt.subs {
				t.Errorf("Substitutions = %d, want %d", r.Substitutions, tt.subs)
			}
			if r.Insertions != tt.ins {
				t.Errorf("Insertions = %d, want %d", r.Insertions, tt.ins)
			}
			if r.Deletions != tt.dels {
				t.Errorf("Deletions = %d, want %d", r.Deletions, tt.dels)
			}
		})
	}
}

func TestScoreEmptyReference(t *testing.T) {
	r := Score("", "anything at all")
	if r.WER != 0 || r.RefWords != 0 {
		t.Errorf("Score with empty reference = %+v, want zero report", r)
	}
}

func TestGradeThresholds(t *testing.T) {
	tests := []struct {
		wer  float64
		want string
	}{
		{0.0, "A"},
		{0.02, "A"},
		{0.03, "B"},
		{0.05, "B"},
		{0.08, "C"},
		{0.10, "C"},
		{0.15, "D"},
		{0.20, "D"},
		{0.21, "F"},
		{1.0, "F"},
	}
	for _, tt := range tests {
		r := AccuracyReport{WER: tt.wer}
		if got := r.Grade(); got != tt.want {
			t.Errorf("Grade(WER=%v) = %q, want %q", tt.wer, got, tt.want)
		}
	}
}
