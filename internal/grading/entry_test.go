package grading

import (
	"math"
	"testing"
)

func TestParseScore(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"80", 80},
		{"  75", 75},
		{"+12", 12},
		{"-5", -5},
		{"72.5", 72},
		{"80%", 80},
		{"007", 7},
		{"150", 150},
		{"12abc", 12},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseScore(tt.in); got != tt.want {
				t.Errorf("ParseScore(%q) = %f, want %f", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseScoreNaN(t *testing.T) {
	for _, in := range []string{"", "abc", "-", " + 3", ".5", "x80"} {
		if got := ParseScore(in); !math.IsNaN(got) {
			t.Errorf("ParseScore(%q) = %f, want NaN", in, got)
		}
	}
}

func TestScoreEntryWeighted(t *testing.T) {
	e := ScoreEntry{Course: "CN6103", Title: "Supporting Project Material (25%)", WeightPercent: 25, Value: "80"}
	if got := e.Weighted(); got != 20 {
		t.Errorf("expected 20, got %f", got)
	}
}

func TestUpsertInsertsThenReplaces(t *testing.T) {
	var entries []ScoreEntry
	entries = Upsert(entries, ScoreEntry{Course: "CN6121", Title: "Coursework (100%)", WeightPercent: 100, Value: "5"})
	entries = Upsert(entries, ScoreEntry{Course: "CN6107", Title: "Component 1 2500-3000 Words (100%)", WeightPercent: 100, Value: "60"})
	entries = Upsert(entries, ScoreEntry{Course: "CN6121", Title: "Coursework (100%)", WeightPercent: 100, Value: "55"})

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Course != "CN6121" || entries[0].Value != "55" {
		t.Errorf("expected CN6121 replaced in place with 55, got %+v", entries[0])
	}
	if entries[1].Course != "CN6107" {
		t.Errorf("expected CN6107 second, got %+v", entries[1])
	}
}

func TestUpsertDoesNotModifyInput(t *testing.T) {
	orig := []ScoreEntry{{Course: "CN6121", Title: "Coursework (100%)", WeightPercent: 100, Value: "5"}}
	_ = Upsert(orig, ScoreEntry{Course: "CN6121", Title: "Coursework (100%)", Value: "9"})
	if orig[0].Value != "5" {
		t.Errorf("input modified: %+v", orig[0])
	}
}
