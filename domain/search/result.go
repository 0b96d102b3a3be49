package search

// Result represents a single scored match from an embedding store lookup.
type Result struct {
	itemID string
	score  float64
}

// NewResult creates a new Result.
func NewResult(itemID string, score float64) Result {
	return Result{itemID: itemID, score: score}
}

// ItemID returns the catalog item ID.
func (r Result) ItemID() string { return r.itemID }

// Score returns the similarity score.
func (r Result) Score() float64 { return r.score }

// Document represents a single item of text pending embedding.
type Document struct {
	itemID string
	text   string
}

// NewDocument creates a new Document.
func NewDocument(itemID, text string) Document {
	return Document{itemID: itemID, text: text}
}

// ItemID returns the catalog item ID the text belongs to.
func (d Document) ItemID() string { return d.itemID }

// Text returns the document text to embed.
func (d Document) Text() string { return d.text }

// IndexRequest batches documents for a single embedding+persist round-trip.
type IndexRequest struct {
	documents []Document
}

// NewIndexRequest creates a new IndexRequest.
func NewIndexRequest(documents []Document) IndexRequest {
	docs := make([]Document, len(documents))
	copy(docs, documents)
	return IndexRequest{documents: docs}
}

// Documents returns the documents to index.
func (i IndexRequest) Documents() []Document {
	docs := make([]Document, len(i.documents))
	copy(docs, i.documents)
	return docs
}
