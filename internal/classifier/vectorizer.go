package classifier

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// SparseVector holds the non-zero features of one document, indices ascending.
type SparseVector struct {
	Indices []int
	Values  []float64
}

// Vectorizer is a TF-IDF vectorizer over word unigrams and bigrams with
// smoothed idf and L2-normalized output.
type Vectorizer struct {
	Vocabulary map[string]int `json:"vocabulary"`
	DocFreq    []int          `json:"doc_freq"`
	NumDocs    int            `json:"num_docs"`
	NGramMax   int            `json:"ngram_max"`
}

// FitVectorizer builds a vocabulary from texts alone.
func FitVectorizer(texts []string) *Vectorizer {
	v := &Vectorizer{Vocabulary: map[string]int{}, NGramMax: 2}
	return v.Extend(texts)
}

// Size is the number of features.
func (v *Vectorizer) Size() int { return len(v.DocFreq) }

// Extend returns a copy of v that also knows the terms of texts. Existing
// terms keep their index; new terms are appended in sorted order. Document
// frequencies and the document count accumulate.
func (v *Vectorizer) Extend(texts []string) *Vectorizer {
	out := &Vectorizer{
		Vocabulary: make(map[string]int, len(v.Vocabulary)),
		DocFreq:    make([]int, len(v.DocFreq)),
		NumDocs:    v.NumDocs + len(texts),
		NGramMax:   v.NGramMax,
	}
	if out.NGramMax <= 0 {
		out.NGramMax = 2
	}
	for t, i := range v.Vocabulary {
		out.Vocabulary[t] = i
	}
	copy(out.DocFreq, v.DocFreq)

	perDoc := make([]map[string]struct{}, len(texts))
	newTerms := map[string]struct{}{}
	for i, text := range texts {
		perDoc[i] = map[string]struct{}{}
		for _, term := range Terms(text, out.NGramMax) {
			perDoc[i][term] = struct{}{}
			if _, known := out.Vocabulary[term]; !known {
				newTerms[term] = struct{}{}
			}
		}
	}

	sorted := make([]string, 0, len(newTerms))
	for t := range newTerms {
		sorted = append(sorted, t)
	}
	sort.Strings(sorted)
	for _, t := range sorted {
		out.Vocabulary[t] = len(out.DocFreq)
		out.DocFreq = append(out.DocFreq, 0)
	}

	for _, terms := range perDoc {
		for t := range terms {
			out.DocFreq[out.Vocabulary[t]]++
		}
	}
	return out
}

// Transform maps text to its L2-normalized TF-IDF vector. Unknown terms are
// ignored.
func (v *Vectorizer) Transform(text string) SparseVector {
	counts := map[int]float64{}
	for _, term := range Terms(text, v.NGramMax) {
		if idx, ok := v.Vocabulary[term]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return SparseVector{}
	}

	vec := SparseVector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Ints(vec.Indices)

	var norm float64
	for _, idx := range vec.Indices {
		w := counts[idx] * v.idf(idx)
		vec.Values = append(vec.Values, w)
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec.Values {
			vec.Values[i] /= norm
		}
	}
	return vec
}

func (v *Vectorizer) idf(idx int) float64 {
	return math.Log(float64(1+v.NumDocs)/float64(1+v.DocFreq[idx])) + 1
}

// Terms lowercases text and returns its word n-grams up to ngramMax. A word
// is a run of letters or digits at least two runes long.
func Terms(text string, ngramMax int) []string {
	words := tokenize(text)
	if ngramMax < 1 {
		ngramMax = 1
	}
	terms := make([]string, 0, len(words)*ngramMax)
	terms = append(terms, words...)
	for n := 2; n <= ngramMax; n++ {
		for i := 0; i+n <= len(words); i++ {
			terms = append(terms, strings.Join(words[i:i+n], " "))
		}
	}
	return terms
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	words := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			words = append(words, f)
		}
	}
	return words
}
