package domain

// Document is a manuscript submitted for review. It is read-only after creation.
type Document struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// DocumentChunk is one segment of a Document produced by the segmenter.
type DocumentChunk struct {
	ID            string            `json:"id"`
	DocumentID    string            `json:"document_id"`
	Content       string            `json:"content"`
	ChapterNumber int               `json:"chapter_number"`
	ChunkIndex    int               `json:"chunk_index"`
	StartPosition int               `json:"start_position"`
	EndPosition   int               `json:"end_position"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type ChunkEmbedding struct {
	Chunk  DocumentChunk `json:"chunk"`
	Vector []float32     `json:"vector"`
}

type SimilarityResult struct {
	Chunk      DocumentChunk `json:"chunk"`
	Similarity float64       `json:"similarity"`
}

type Answer struct {
	Text    string             `json:"text"`
	Sources []SimilarityResult `json:"sources"`
}
