package responder

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// vectorizer 词频 × 平滑 idf，L2 归一化。
// 分词：转小写后取长度不少于 2 的连续单词字符（字母、数字、下划线）。
type vectorizer struct {
	vocab map[string]int
	idf   []float64
}

func fitVectorizer(docs []string) *vectorizer {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, tok := range tokenize(doc) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v := &vectorizer{vocab: make(map[string]int, len(terms)), idf: make([]float64, len(terms))}
	for i, term := range terms {
		v.vocab[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return v
}

// transform 词表外的词被忽略；没有任何词表内的词时返回零向量
func (v *vectorizer) transform(text string) []float64 {
	vec := make([]float64, len(v.idf))
	for _, tok := range tokenize(text) {
		if i, ok := v.vocab[tok]; ok {
			vec[i]++
		}
	}

	var norm float64
	for i := range vec {
		vec[i] *= v.idf[i]
		norm += vec[i] * vec[i]
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// cosine 两个向量都已归一化，点积即余弦
func cosine(a, b []float64) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

func tokenize(text string) []string {
	var tokens []string
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Mn, r)
}
