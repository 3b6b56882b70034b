package lexrag

import (
	"strings"

	"github.com/juridai/lexrag/model"
)

// promptInstructions pins the grounding discipline: the model answers only
// from the retrieved context and cites article numbers or source titles
// when the context carries them. This is a prompt-level control, not a
// structural guarantee — the model's refusal string is a first-class
// response for callers.
const promptInstructions = `You are an expert Moroccan Legal Assistant named Jurid-AI.
Answer the user's question based ONLY on the following context.
If the answer is not in the context, say "I do not have enough information in my legal database to answer this question."
Always cite the specific article numbers or source titles if available in the context.`

// composePrompt builds the grounded prompt: fixed instructions, the
// retrieved passage texts in retrieval order, then the question.
func composePrompt(sources []model.Passage, question string) string {
	var b strings.Builder
	b.WriteString(promptInstructions)
	b.WriteString("\n\nContext:\n")
	for _, p := range sources {
		b.WriteString(p.Text)
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
