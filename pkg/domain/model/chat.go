package model

// Snippet is one retrieved match from a building's vector collection, with
// its citation fields and cosine similarity score.
type Snippet struct {
	Text       string
	Address    string
	DocumentID string
	SourceLink string
	Score      float64
}

// ChatExchange is a single question/answer/context triple. It is constructed
// per request and never persisted by the core.
type ChatExchange struct {
	Question   string
	BuildingID string
	Snippets   []*Snippet
	Answer     string

	// Grounded reports whether the answer was conditioned on at least one
	// retrieved document snippet. Ungrounded answers must be flagged to the
	// caller as unverified by documents.
	Grounded bool
}
