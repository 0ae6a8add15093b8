package transcript

import (
	"strings"
	"testing"
)

func TestAlignMidpointRule(t *testing.T) {
	// Midpoint of [1.4,1.6] is exactly 1.5, the shared boundary. The first
	// window wins because both edges are inclusive and windows are scanned
	// in diarization order.
	diar := []Segment{
		{Speaker: "S1", Start: 0, End: 1.5},
		{Speaker: "S2", Start: 1.5, End: 3},
	}
	tokens := []Token{{Start: 1.4, End: 1.6, Text: "hi"}}

	got := Align(diar, tokens, "hi", 3)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Text != "hi" {
		t.Errorf("S1 text = %q, want hi", got[0].Text)
	}
	if got[1].Text != "" {
		t.Errorf("S2 text = %q, want empty", got[1].Text)
	}
}

func TestAlignDropsGapTokens(t *testing.T) {
	diar := []Segment{
		{Speaker: "S1", Start: 0, End: 1},
		{Speaker: "S2", Start: 5, End: 6},
	}
	tokens := []Token{
		{Start: 0.1, End: 0.3, Text: "in"},
		{Start: 2.0, End: 2.5, Text: "gap"}, // midpoint 2.25, between windows
		{Start: 5.1, End: 5.3, Text: "out"},
	}
	got := Align(diar, tokens, "", 6)
	all := got[0].Text + " " + got[1].Text
	if strings.Contains(all, "gap") {
		t.Errorf("gap token was assigned: %+v", got)
	}
	if got[0].Text != "in" || got[1].Text != "out" {
		t.Errorf("got %+v", got)
	}
}

func TestAlignTokenAssignedOnce(t *testing.T) {
	// Overlapping windows: a token in both ranges goes to the earlier one only.
	diar := []Segment{
		{Speaker: "S1", Start: 0, End: 2},
		{Speaker: "S2", Start: 1, End: 3},
	}
	tokens := []Token{{Start: 1.4, End: 1.6, Text: "once"}}
	got := Align(diar, tokens, "once", 3)
	if got[0].Text != "once" {
		t.Errorf("S1 text = %q, want once", got[0].Text)
	}
	if got[1].Text != "" {
		t.Errorf("S2 text = %q, want empty", got[1].Text)
	}
}

func TestAlignFallbackWordConservation(t *testing.T) {
	diar := []Segment{
		{Speaker: "S1", Start: 0, End: 5},
		{Speaker: "S2", Start: 5, End: 10},
	}
	fullText := "one two three four five six seven eight nine ten"

	got := Align(diar, nil, fullText, 10)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	w1 := strings.Fields(got[0].Text)
	w2 := strings.Fields(got[1].Text)
	if len(w1) != 5 || len(w2) != 5 {
		t.Errorf("split = %d/%d, want 5/5", len(w1), len(w2))
	}
	if joined := got[0].Text + " " + got[1].Text; joined != fullText {
		t.Errorf("concatenation = %q, want original word sequence", joined)
	}
}

func TestAlignFallbackLeftoverWords(t *testing.T) {
	// Short first window rounds down to 1 word, leftovers land on the last.
	diar := []Segment{
		{Speaker: "S1", Start: 0, End: 1},
		{Speaker: "S2", Start: 1, End: 2},
	}
	fullText := "a b c d e"
	got := Align(diar, nil, fullText, 2)
	joined := strings.Join(strings.Fields(got[0].Text+" "+got[1].Text), " ")
	if joined != fullText {
		t.Errorf("words lost or duplicated: %q", joined)
	}
}

func TestAlignFallbackZeroDuration(t *testing.T) {
	diar := []Segment{
		{Speaker: "S1", Start: 1, End: 1},
		{Speaker: "S2", Start: 2, End: 2},
	}
	got := Align(diar, nil, "some words here", 2)
	for _, l := range got {
		if l.Text != "" {
			t.Errorf("segment %q text = %q, want empty", l.Speaker, l.Text)
		}
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2 (pass-through)", len(got))
	}
}

func TestAlignEmptyDiarization(t *testing.T) {
	got := Align(nil, nil, "the whole transcript", 42)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Speaker != UnknownSpeaker {
		t.Errorf("speaker = %q, want %q", got[0].Speaker, UnknownSpeaker)
	}
	if got[0].Start != 0 || got[0].End != 42 {
		t.Errorf("window = [%v,%v], want [0,42]", got[0].Start, got[0].End)
	}
	if got[0].Text != "the whole transcript" {
		t.Errorf("text = %q", got[0].Text)
	}
}

func TestAlignMergePostPass(t *testing.T) {
	// Same speaker in consecutive windows is re-merged with a single space.
	diar := []Segment{
		{Speaker: "A", Start: 0, End: 1},
		{Speaker: "A", Start: 1, End: 2},
	}
	tokens := []Token{
		{Start: 0.2, End: 0.4, Text: "first"},
		{Start: 1.2, End: 1.4, Text: "second"},
	}
	got := Align(diar, tokens, "", 2)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Text != "first second" {
		t.Errorf("text = %q, want %q", got[0].Text, "first second")
	}
}

func TestAlignEndToEnd(t *testing.T) {
	// Diarization [{A,0,3},{A,3,6},{B,6,9}] with tokens evenly covering 0-9s.
	diar := Merge([]Segment{
		{Speaker: "A", Start: 0, End: 3},
		{Speaker: "A", Start: 3, End: 6},
		{Speaker: "B", Start: 6, End: 9},
	})
	if len(diar) != 2 {
		t.Fatalf("merged len = %d, want 2", len(diar))
	}

	var tokens []Token
	for i := 0; i < 9; i++ {
		tokens = append(tokens, Token{
			Start: float64(i),
			End:   float64(i) + 1,
			Text:  "w" + string(rune('0'+i)),
		})
	}

	got := Align(diar, tokens, "", 9)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Speaker != "A" || got[1].Speaker != "B" {
		t.Errorf("speakers = %q,%q, want A,B", got[0].Speaker, got[1].Speaker)
	}
	if got[0].Start != 0 || got[0].End != 6 || got[1].Start != 6 || got[1].End != 9 {
		t.Errorf("windows = %+v", got)
	}
	if got[0].Text == "" || got[1].Text == "" {
		t.Errorf("expected non-empty text in both segments: %+v", got)
	}
}
