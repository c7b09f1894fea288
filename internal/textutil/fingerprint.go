package textutil

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const minTokenRunes = 2

// Fingerprint is a weighted term vector.
type Fingerprint struct {
	terms map[string]float64
	norm  float64
}

// NewFingerprint builds a fingerprint from the concatenation of parts.
// It returns nil when no usable tokens remain.
func NewFingerprint(parts ...string) *Fingerprint {
	counts := make(map[string]float64)
	for _, part := range parts {
		for _, token := range Tokenize(part) {
			counts[token]++
		}
	}
	return fromWeights(counts)
}

func fromWeights(weights map[string]float64) *Fingerprint {
	var sum float64
	for term, w := range weights {
		if w == 0 {
			delete(weights, term)
			continue
		}
		sum += w * w
	}
	if len(weights) == 0 {
		return nil
	}
	return &Fingerprint{terms: weights, norm: math.Sqrt(sum)}
}

// Tokenize splits text into normalized lowercase tokens.
func Tokenize(text string) []string {
	text = strings.ToLower(norm.NFKC.String(text))
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, field := range fields {
		if utf8.RuneCountInString(field) >= minTokenRunes {
			tokens = append(tokens, field)
		}
	}
	return tokens
}

// Terms reports the number of distinct terms.
func (f *Fingerprint) Terms() int {
	if f == nil {
		return 0
	}
	return len(f.terms)
}

// Weighted returns a copy with every term multiplied by its weight in idf.
// Terms missing from idf keep their weight.
func (f *Fingerprint) Weighted(idf map[string]float64) *Fingerprint {
	if f == nil || len(idf) == 0 {
		return f
	}
	weights := make(map[string]float64, len(f.terms))
	for term, count := range f.terms {
		if w, ok := idf[term]; ok {
			count *= w
		}
		weights[term] = count
	}
	return fromWeights(weights)
}

// Corpus counts in how many documents each term appears.
type Corpus struct {
	docs    int
	docFreq map[string]int
}

func NewCorpus() *Corpus {
	return &Corpus{docFreq: make(map[string]int)}
}

// Add records one document.
func (c *Corpus) Add(f *Fingerprint) {
	if f == nil {
		return
	}
	c.docs++
	for term := range f.terms {
		c.docFreq[term]++
	}
}

// IDF returns smoothed inverse document frequencies, 1+log((N+1)/(df+1)),
// which stay positive so a term present everywhere still matches.
func (c *Corpus) IDF() map[string]float64 {
	if c.docs == 0 {
		return nil
	}
	idf := make(map[string]float64, len(c.docFreq))
	n := float64(c.docs)
	for term, df := range c.docFreq {
		idf[term] = 1 + math.Log((n+1)/(float64(df)+1))
	}
	return idf
}

// Cosine returns the cosine similarity of a and b in [0, 1]. Nil
// fingerprints score 0.
func Cosine(a, b *Fingerprint) float64 {
	if a == nil || b == nil {
		return 0
	}
	if len(b.terms) < len(a.terms) {
		a, b = b, a
	}
	var dot float64
	for term, w := range a.terms {
		dot += w * b.terms[term]
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}
