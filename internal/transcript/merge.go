package transcript

import "strings"

// Merge collapses consecutive same-speaker turns into single windows.
// The accumulator's end is extended to each absorbed turn's end, so dead air
// between same-speaker turns becomes part of that speaker's window. Adjacent
// output windows never share a speaker, and the operation is idempotent.
func Merge(segs []Segment) []Segment {
	if len(segs) == 0 {
		return nil
	}

	merged := make([]Segment, 0, len(segs))
	cur := segs[0]

	for _, s := range segs[1:] {
		if s.Speaker == cur.Speaker {
			cur.End = s.End
		} else {
			merged = append(merged, cur)
			cur = s
		}
	}
	merged = append(merged, cur)
	return merged
}

// MergeLabeled applies the same rule to transcribed windows, concatenating
// adjacent same-speaker text with a single separating space. Alignment runs
// this as a post-pass so it never reintroduces speaker fragmentation.
func MergeLabeled(segs []Labeled) []Labeled {
	if len(segs) == 0 {
		return nil
	}

	merged := make([]Labeled, 0, len(segs))
	cur := segs[0]

	for _, s := range segs[1:] {
		if s.Speaker == cur.Speaker {
			cur.End = s.End
			if s.Text != "" {
				cur.Text = strings.TrimSpace(cur.Text + " " + s.Text)
			}
		} else {
			merged = append(merged, cur)
			cur = s
		}
	}
	merged = append(merged, cur)
	return merged
}
