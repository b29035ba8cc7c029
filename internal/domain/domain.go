package domain

// Section is one labeled passage group of an article, e.g. the
// title/abstract block or a top-level body section.
type Section struct {
	Title      string
	Type       SectionType
	Paragraphs []string
}

// SectionType classifies where in the article a section came from.
type SectionType string

const (
	SectionTitleAbstract SectionType = "TITLE_ABSTRACT"
	SectionBody          SectionType = "BODY_SEC"
	SectionBodyFallback  SectionType = "BODY_FALLBACK"
)

// Document represents a single parsed article. Immutable once ingested.
type Document struct {
	ID       string // PMCID, e.g. "PMC123456"
	PMID     string
	Title    string
	Journal  string
	DOI      string
	Year     string
	Month    string
	Sections []Section
	Source   string // path of the raw XML the document was parsed from
}

// Chunk is a bounded span of document text used as the atomic retrieval unit.
// The ID is a deterministic function of (document, section, position), so
// re-chunking the same document yields identical ids.
type Chunk struct {
	ID           string // "<pmcid>:<sectionIdx>:<chunkIdx>"
	DocumentID   string
	SectionIndex int
	SectionTitle string
	SectionType  SectionType
	Index        int // position of the chunk within its section
	WordOffset   int // offset of the first word within the section text
	Text         string
}

// ChunkRecord is the persisted form of a chunk, one JSON line in the
// lookup table. RowID equals the chunk's row in the vector index.
type ChunkRecord struct {
	RowID        int    `json:"row_id"`
	ChunkID      string `json:"chunk_id"`
	PMCID        string `json:"pmcid"`
	PMID         string `json:"pmid,omitempty"`
	SectionIndex int    `json:"section_index"`
	SectionTitle string `json:"section_title"`
	ChunkIndex   int    `json:"chunk_index_in_section"`
	Text         string `json:"text"`
	Journal      string `json:"journal,omitempty"`
	DOI          string `json:"doi,omitempty"`
	Year         string `json:"year,omitempty"`
	Month        string `json:"month,omitempty"`
	SourceXML    string `json:"source_xml,omitempty"`
}

// RetrievedChunk is a chunk plus its similarity score, produced at query
// time and never persisted.
type RetrievedChunk struct {
	Record ChunkRecord `json:"record"`
	Score  float64     `json:"score"`
}

// Citation points at one chunk that grounded part of an answer.
type Citation struct {
	ChunkID string `json:"chunk_id"`
	PMCID   string `json:"pmcid"`
	Snippet string `json:"text_snippet"`
}

// AnswerWithCitations is the final answer from the query pipeline.
// Citations cover exactly the chunks whose text went into the prompt.
type AnswerWithCitations struct {
	Answer      string           `json:"answer"`
	Citations   []Citation       `json:"citations"`
	ContextUsed []RetrievedChunk `json:"context_used"`
}
