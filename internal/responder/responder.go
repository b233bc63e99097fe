package responder

import (
	"fmt"

	"triagebot/internal/model"
)

const DefaultThreshold = 0.3

// Responder 用 TF-IDF 余弦相似度把正文匹配到意图表，构造后只读
type Responder struct {
	catalog   *model.IntentCatalog
	fallback  model.SuggestionSet
	threshold float64

	vec     *vectorizer
	intents [][]float64
}

func New(catalog *model.IntentCatalog, fallback model.SuggestionSet, threshold float64) (*Responder, error) {
	if catalog == nil || catalog.Len() == 0 {
		return nil, fmt.Errorf("responder requires a non-empty intent catalog")
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("similarity threshold must be within [0,1], got %v", threshold)
	}
	if len(fallback) == 0 {
		fallback = model.DefaultFallbackReplies()
	}

	keywords := catalog.Keywords()
	vec := fitVectorizer(keywords)
	intents := make([][]float64, len(keywords))
	for i, kw := range keywords {
		intents[i] = vec.transform(kw)
	}

	return &Responder{
		catalog:   catalog,
		fallback:  append(model.SuggestionSet(nil), fallback...),
		threshold: threshold,
		vec:       vec,
		intents:   intents,
	}, nil
}

// Match 返回最相似的意图下标和得分；并列时取声明顺序靠前的
func (r *Responder) Match(body string) (int, float64) {
	q := r.vec.transform(body)
	best, bestScore := 0, cosine(q, r.intents[0])
	for i := 1; i < len(r.intents); i++ {
		if s := cosine(q, r.intents[i]); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, bestScore
}

// SuggestReplies 得分严格大于阈值时返回该意图的回复，否则返回兜底回复
func (r *Responder) SuggestReplies(body string) model.SuggestionSet {
	idx, score := r.Match(body)
	if score > r.threshold {
		return r.catalog.Replies(idx)
	}
	return append(model.SuggestionSet(nil), r.fallback...)
}

// Intent 返回匹配到的意图关键词，未过阈值时 ok 为 false
func (r *Responder) Intent(body string) (string, bool) {
	idx, score := r.Match(body)
	if score > r.threshold {
		return r.catalog.Keywords()[idx], true
	}
	return "", false
}
