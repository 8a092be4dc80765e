package rag

// AskRequest represents a RAG query request.
type AskRequest struct {
	// Question is the user's question to answer.
	Question string `json:"question"`
	// K optionally specifies how many chunks to retrieve. 0 uses the engine default.
	K int `json:"k,omitempty"`
}

// Reference represents a stored chunk that was given to the LLM as context.
type Reference struct {
	// ChunkID is the chunk identifier ("{source}:{page}:{sequence_index}").
	ChunkID string `json:"chunk_id"`
	// Source is the document file name.
	Source string `json:"source"`
	// Page is the zero-based page (PDF) or paragraph (Word) index.
	Page int `json:"page"`
	// Score is the cosine similarity to the question.
	Score float32 `json:"score"`
	// Text is the chunk text.
	Text string `json:"text"`
}

// AskResponse represents the response from a RAG query.
type AskResponse struct {
	// Answer is the generated answer from the LLM.
	Answer string `json:"answer"`
	// References are the retrieved chunks in descending similarity.
	References []Reference `json:"references"`
}
