package transcript

import (
	"reflect"
	"testing"
)

func TestMerge(t *testing.T) {
	in := []Segment{
		{Speaker: "A", Start: 0, End: 2},
		{Speaker: "A", Start: 2, End: 5},
		{Speaker: "B", Start: 5, End: 7},
	}
	want := []Segment{
		{Speaker: "A", Start: 0, End: 5},
		{Speaker: "B", Start: 5, End: 7},
	}
	got := Merge(in)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge = %+v, want %+v", got, want)
	}
}

func TestMergeAbsorbsDeadAir(t *testing.T) {
	// Gap between same-speaker turns becomes part of the speaker's window.
	in := []Segment{
		{Speaker: "A", Start: 0, End: 1},
		{Speaker: "A", Start: 3, End: 4},
	}
	got := Merge(in)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Start != 0 || got[0].End != 4 {
		t.Errorf("window = [%v,%v], want [0,4]", got[0].Start, got[0].End)
	}
}

func TestMergeIdempotent(t *testing.T) {
	cases := [][]Segment{
		nil,
		{{Speaker: "A", Start: 0, End: 1}},
		{
			{Speaker: "A", Start: 0, End: 2},
			{Speaker: "A", Start: 2, End: 5},
			{Speaker: "B", Start: 5, End: 7},
			{Speaker: "B", Start: 7, End: 8},
			{Speaker: "A", Start: 8, End: 9},
		},
	}
	for i, in := range cases {
		once := Merge(in)
		twice := Merge(once)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("case %d: merge(merge(S)) = %+v, merge(S) = %+v", i, twice, once)
		}
	}
}

func TestMergeEmptyAndSingle(t *testing.T) {
	if got := Merge(nil); got != nil {
		t.Errorf("Merge(nil) = %+v, want nil", got)
	}
	single := []Segment{{Speaker: "A", Start: 1, End: 2}}
	got := Merge(single)
	if !reflect.DeepEqual(got, single) {
		t.Errorf("Merge(single) = %+v, want %+v", got, single)
	}
}

func TestMergeNoAdjacentSameSpeaker(t *testing.T) {
	in := []Segment{
		{Speaker: "A", Start: 0, End: 1},
		{Speaker: "A", Start: 1, End: 2},
		{Speaker: "B", Start: 2, End: 3},
		{Speaker: "A", Start: 3, End: 4},
		{Speaker: "A", Start: 4, End: 5},
	}
	got := Merge(in)
	for i := 1; i < len(got); i++ {
		if got[i].Speaker == got[i-1].Speaker {
			t.Fatalf("adjacent segments %d,%d share speaker %q", i-1, i, got[i].Speaker)
		}
	}
}

func TestMergeLabeledJoinsText(t *testing.T) {
	in := []Labeled{
		{Speaker: "A", Start: 0, End: 1, Text: "hello"},
		{Speaker: "A", Start: 1, End: 2, Text: "there"},
		{Speaker: "A", Start: 2, End: 3, Text: ""},
		{Speaker: "B", Start: 3, End: 4, Text: "hi"},
	}
	got := MergeLabeled(in)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Text != "hello there" {
		t.Errorf("text = %q, want %q", got[0].Text, "hello there")
	}
	if got[0].End != 3 {
		t.Errorf("end = %v, want 3", got[0].End)
	}
	if got[1].Text != "hi" {
		t.Errorf("text = %q, want hi", got[1].Text)
	}
}
