package llm

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Document is one retrievable record in the knowledge base.
type Document struct {
	DocID    string
	Content  string
	Metadata map[string]string
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// KnowledgeBase is an in-memory retrieval store. Similarity is token
// overlap between the query and each document, which is crude but has no
// external dependency and is deterministic in tests.
type KnowledgeBase struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewKnowledgeBase creates an empty knowledge base.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{docs: make(map[string]Document)}
}

// Store adds or replaces a document by ID.
func (kb *KnowledgeBase) Store(doc Document) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.docs[doc.DocID] = doc
}

// Len returns the number of stored documents.
func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.docs)
}

// Retrieve returns up to k documents ranked by token overlap with the
// query. Documents with zero overlap are excluded; ties break by DocID so
// results are stable.
func (kb *KnowledgeBase) Retrieve(query string, k int) []Document {
	if k <= 0 {
		return nil
	}
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	kb.mu.RLock()
	defer kb.mu.RUnlock()

	type scored struct {
		doc   Document
		score int
	}
	var candidates []scored
	for _, doc := range kb.docs {
		score := overlap(queryTokens, tokenize(doc.Content))
		if score > 0 {
			candidates = append(candidates, scored{doc: doc, score: score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].doc.DocID < candidates[j].doc.DocID
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]Document, len(candidates))
	for i, c := range candidates {
		out[i] = c.doc
	}
	return out
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, t := range tokenPattern.FindAllString(strings.ToLower(s), -1) {
		tokens[t] = true
	}
	return tokens
}

func overlap(a, b map[string]bool) int {
	count := 0
	for t := range a {
		if b[t] {
			count++
		}
	}
	return count
}
