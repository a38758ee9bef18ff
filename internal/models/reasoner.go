package models

// RAGRetrieval is one retrieved guide excerpt, surfaced in demo mode.
type RAGRetrieval struct {
	Query          string  `json:"query"`
	SectionID      string  `json:"section_id"`
	SectionTitle   string  `json:"section_title"`
	GSE            GSE     `json:"gse"`
	RelevanceScore float64 `json:"relevance_score"`
	Snippet        string  `json:"snippet"`
}

// ReasoningStep is one rule check performed by the guide-based analysis.
type ReasoningStep struct {
	Rule     string `json:"rule"`
	Product  string `json:"product"`
	Check    string `json:"check"`
	Result   string `json:"result"`
	Citation string `json:"citation"`
	Details  string `json:"details"`
}

// IndexStats describes the vector index backing retrieval.
type IndexStats struct {
	TotalVectors int    `json:"total_vectors"`
	Dimension    int    `json:"dimension"`
	Namespace    string `json:"namespace"`
}

// DemoModeData exposes the retrieval and reasoning internals for demos.
type DemoModeData struct {
	RAGRetrievals   []RAGRetrieval  `json:"rag_retrievals"`
	RetrievalTimeMs int64           `json:"retrieval_time_ms"`
	ReasoningSteps  []ReasoningStep `json:"reasoning_steps"`
	ReasoningTimeMs int64           `json:"reasoning_time_ms"`
	TokensInput     int             `json:"tokens_input"`
	TokensOutput    int             `json:"tokens_output"`
	IndexStats      IndexStats      `json:"index_stats"`
}
