package match

import (
	"math"
	"sort"

	"github.com/clinical-rosetta/internal/debug"
	"github.com/clinical-rosetta/internal/model"
)

// Scorer turns raw candidate scores into calibrated confidences
type Scorer struct {
	settings Settings
}

// NewScorer creates a scorer
func NewScorer(settings Settings) *Scorer {
	return &Scorer{settings: settings}
}

// tieEpsilon absorbs float error when comparing a similarity gap to the tie margin
const tieEpsilon = 1e-9

// Score assigns confidences and sorts candidates best first. It reports
// whether the two strongest fuzzy candidates were too close to call. On a tie
// every fuzzy candidate within the tie margin of the best carries the
// ambiguity penalty, and the remaining fuzzy candidates are capped at the
// lowest penalized confidence so none of them overtakes the tied group.
func (s *Scorer) Score(localDebug bool, candidates []Candidate) ([]Candidate, bool) {
	debug.DebugHeader(localDebug)
	defer debug.DebugFooter(localDebug)

	out := make([]Candidate, len(candidates))
	copy(out, candidates)

	top, ambiguous := s.fuzzyTie(localDebug, out)

	floor := 1.0
	if ambiguous {
		for _, c := range out {
			if c.Provenance == model.ProvenanceFuzzy && s.tied(top, c.RawScore) {
				floor = math.Min(floor, clamp(c.RawScore*s.settings.FuzzyCalibration-s.settings.AmbiguityPenalty))
			}
		}
	}

	for i := range out {
		c := &out[i]
		switch c.Provenance {
		case model.ProvenanceFuzzy:
			c.Confidence = c.RawScore * s.settings.FuzzyCalibration
			if ambiguous {
				if s.tied(top, c.RawScore) {
					c.Confidence -= s.settings.AmbiguityPenalty
				} else {
					c.Confidence = math.Min(c.Confidence, floor)
				}
			}
		default:
			c.Confidence = c.RawScore
		}
		c.Confidence = clamp(c.Confidence)
		debug.DebugOutput(localDebug, "Candidate %s (%s): raw=%.4f confidence=%.4f",
			c.Identifier, c.Provenance, c.RawScore, c.Confidence)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		if ri, rj := out[i].Provenance.Rank(), out[j].Provenance.Rank(); ri != rj {
			return ri < rj
		}
		if out[i].RawScore != out[j].RawScore {
			return out[i].RawScore > out[j].RawScore
		}
		return out[i].Identifier < out[j].Identifier
	})

	return out, ambiguous
}

// tied reports whether raw sits within the tie margin of the best fuzzy score
func (s *Scorer) tied(top, raw float64) bool {
	return top-raw < s.settings.TieMargin-tieEpsilon
}

// fuzzyTie returns the best fuzzy raw score and whether the runner-up lies
// within the tie margin of it
func (s *Scorer) fuzzyTie(localDebug bool, candidates []Candidate) (float64, bool) {
	var first, second float64 = -1, -1
	for _, c := range candidates {
		if c.Provenance != model.ProvenanceFuzzy {
			continue
		}
		switch {
		case c.RawScore > first:
			first, second = c.RawScore, first
		case c.RawScore > second:
			second = c.RawScore
		}
	}
	if second < 0 {
		return first, false
	}

	tie := s.tied(first, second)
	debug.DebugOutput(localDebug, "Top fuzzy gap: %.4f (margin %.4f) ambiguous=%v", first-second, s.settings.TieMargin, tie)
	return first, tie
}

func clamp(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
