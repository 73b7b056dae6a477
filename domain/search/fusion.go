package search

import "sort"

// DefaultRRFConstant is the k of reciprocal rank fusion.
const DefaultRRFConstant = 60.0

// Fusion combines the BM25, code-vector and text-vector ranked lists with
// reciprocal rank fusion: score(s) = Σ 1/(k + rank), ranks 1-based, absent
// lists contributing nothing.
type Fusion struct {
	k float64
}

// NewFusion creates a Fusion with the default constant.
func NewFusion() Fusion {
	return Fusion{k: DefaultRRFConstant}
}

// NewFusionWithK creates a Fusion with a custom constant; non-positive
// values fall back to the default.
func NewFusionWithK(k float64) Fusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return Fusion{k: k}
}

// K returns the RRF constant.
func (f Fusion) K() float64 { return f.k }

// Fused is one snippet after fusion, carrying the combined score and the
// per-method original scores.
type Fused struct {
	snippetID      int64
	score          float64
	originalScores map[Method]float64
}

// SnippetID returns the snippet row id.
func (r Fused) SnippetID() int64 { return r.snippetID }

// Score returns the fused RRF score.
func (r Fused) Score() float64 { return r.score }

// OriginalScore returns the method-native score and whether the snippet
// appeared in that method's list.
func (r Fused) OriginalScore(m Method) (float64, bool) {
	v, ok := r.originalScores[m]
	return v, ok
}

// OriginalScores returns a copy of all per-method scores.
func (r Fused) OriginalScores() map[Method]float64 {
	scores := make(map[Method]float64, len(r.originalScores))
	for m, v := range r.originalScores {
		scores[m] = v
	}
	return scores
}

// Fuse combines the three ranked lists. Output is sorted by fused score
// descending; ties break by BM25 score descending, then snippet id
// ascending.
func (f Fusion) Fuse(bm25, codeVector, textVector []Result) []Fused {
	type accum struct {
		score     float64
		originals map[Method]float64
	}
	byID := make(map[int64]*accum)

	absorb := func(method Method, list []Result) {
		for i, r := range list {
			a, ok := byID[r.SnippetID()]
			if !ok {
				a = &accum{originals: make(map[Method]float64, 3)}
				byID[r.SnippetID()] = a
			}
			rank := float64(i + 1)
			a.score += 1.0 / (f.k + rank)
			a.originals[method] = r.Score()
		}
	}
	absorb(MethodBM25, bm25)
	absorb(MethodCodeVector, codeVector)
	absorb(MethodTextVector, textVector)

	fused := make([]Fused, 0, len(byID))
	for id, a := range byID {
		fused = append(fused, Fused{snippetID: id, score: a.score, originalScores: a.originals})
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		bi := fused[i].originalScores[MethodBM25]
		bj := fused[j].originalScores[MethodBM25]
		if bi != bj {
			return bi > bj
		}
		return fused[i].snippetID < fused[j].snippetID
	})
	return fused
}

// FuseTopK fuses and truncates to the best k snippets.
func (f Fusion) FuseTopK(topK int, bm25, codeVector, textVector []Result) []Fused {
	fused := f.Fuse(bm25, codeVector, textVector)
	if topK <= 0 || topK >= len(fused) {
		return fused
	}
	return fused[:topK]
}
