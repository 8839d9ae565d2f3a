package tfidf

import "math"

// Document is one (id, text) pair to vectorize.
type Document struct {
	ID   string
	Text string
}

// Vectorize computes smoothed TF-IDF vectors for docs:
//
//	idf(t)    = ln((1 + N) / (1 + df(t))) + 1
//	weight(t) = (count(t) / len(doc)) * idf(t)
//
// where N is max(len(docs), 1) and len(doc) counts duplicate tokens. A document without
// tokens gets an empty vector. The result keeps the order of docs; a repeated id keeps
// its first position and the tokens of its last occurrence.
func Vectorize(docs []Document) *Corpus {
	df := make(map[string]int)
	order := make([]string, 0, len(docs))
	tokenized := make(map[string][]string, len(docs))
	for _, doc := range docs {
		tokens := Tokenize(doc.Text)
		if _, seen := tokenized[doc.ID]; !seen {
			order = append(order, doc.ID)
		}
		tokenized[doc.ID] = tokens
		for term := range CountTokens(tokens) {
			df[term]++
		}
	}

	totalDocs := len(docs)
	if totalDocs < 1 {
		totalDocs = 1
	}

	corpus := NewCorpus()
	for _, id := range order {
		tokens := tokenized[id]
		vec := make(Vector)
		length := float64(len(tokens))
		for term, count := range CountTokens(tokens) {
			vec[term] = (float64(count) / length) * IDF(totalDocs, df[term])
		}
		corpus.Set(id, vec)
	}
	return corpus
}

// IDF returns the smoothed inverse document frequency of a term seen in docFreq of totalDocs documents.
// It is at least 1 whenever docFreq <= totalDocs.
func IDF(totalDocs, docFreq int) float64 {
	return math.Log(float64(1+totalDocs)/float64(1+docFreq)) + 1.0
}
