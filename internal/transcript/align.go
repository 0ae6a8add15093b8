package transcript

import (
	"math"
	"strings"
)

// Align maps timestamped transcription output onto diarization windows and
// returns one labeled segment per window, merged so that adjacent windows
// never share a speaker.
//
// With tokens, each token goes to the first window (in diarization order)
// whose range contains the token's midpoint, inclusive at both edges; a token
// whose midpoint lands exactly on a boundary shared by two windows therefore
// belongs to the earlier one. Tokens falling in gaps between windows are
// dropped.
//
// Without tokens, the words of fullText are distributed across windows
// proportionally to duration.
//
// With no diarization at all, the result is a single synthetic window under
// UnknownSpeaker spanning [0, totalDuration] and holding the full text.
func Align(diar []Segment, tokens []Token, fullText string, totalDuration float64) []Labeled {
	if len(diar) == 0 {
		return []Labeled{{
			Speaker: UnknownSpeaker,
			Start:   0,
			End:     totalDuration,
			Text:    strings.TrimSpace(fullText),
		}}
	}

	var labeled []Labeled
	if len(tokens) > 0 {
		labeled = alignTokens(diar, tokens)
	} else {
		labeled = distributeWords(diar, fullText)
	}

	return MergeLabeled(labeled)
}

// alignTokens assigns each token to the first window containing its midpoint.
func alignTokens(diar []Segment, tokens []Token) []Labeled {
	assigned := make([]bool, len(tokens))
	labeled := make([]Labeled, len(diar))

	for i, d := range diar {
		var parts []string
		for j, tok := range tokens {
			if assigned[j] {
				continue
			}
			mid := (tok.Start + tok.End) / 2
			if mid >= d.Start && mid <= d.End {
				assigned[j] = true
				if t := strings.TrimSpace(tok.Text); t != "" {
					parts = append(parts, t)
				}
			}
		}
		labeled[i] = Labeled{
			Speaker: d.Speaker,
			Start:   d.Start,
			End:     d.End,
			Text:    strings.Join(parts, " "),
		}
	}
	return labeled
}

// distributeWords splits fullText across windows proportionally to each
// window's share of the total diarization duration. Every window receives at
// least one word while words remain; words left after the last window are
// appended to it. A zero total duration yields the windows with empty text.
func distributeWords(diar []Segment, fullText string) []Labeled {
	labeled := make([]Labeled, len(diar))
	for i, d := range diar {
		labeled[i] = Labeled{Speaker: d.Speaker, Start: d.Start, End: d.End}
	}

	var totalDur float64
	for _, d := range diar {
		totalDur += d.Duration()
	}
	if totalDur == 0 {
		return labeled
	}

	words := strings.Fields(fullText)
	total := len(words)
	idx := 0

	for i, d := range diar {
		if idx >= total {
			break
		}
		n := int(math.Round(float64(total) * d.Duration() / totalDur))
		if n < 1 {
			n = 1
		}
		if idx+n > total {
			n = total - idx
		}
		labeled[i].Text = strings.Join(words[idx:idx+n], " ")
		idx += n
	}

	// Leftovers go to the last window.
	if idx < total {
		last := &labeled[len(labeled)-1]
		rest := strings.Join(words[idx:], " ")
		if last.Text == "" {
			last.Text = rest
		} else {
			last.Text += " " + rest
		}
	}

	return labeled
}
