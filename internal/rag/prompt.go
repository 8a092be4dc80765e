package rag

import "strings"

// contextSeparator joins retrieved chunk texts in the prompt.
const contextSeparator = "\n\n---\n\n"

const promptTemplate = `
Answer the question based only on the following context:

{context}

---

Answer the question based on the above context: {question}
`

// BuildPrompt fills the answer prompt with the retrieved texts and the question.
func BuildPrompt(texts []string, question string) string {
	r := strings.NewReplacer(
		"{context}", strings.Join(texts, contextSeparator),
		"{question}", question,
	)
	return r.Replace(promptTemplate)
}
