package generative

import (
	"fmt"
	"strings"

	"github.com/KNBS-StatsChat/statschat-ke/llmclient"
)

const extractiveSystemPrompt = `You are an expert assistant answering questions from official statistical bulletins.
Use ONLY the numbered context documents provided. Extract the most relevant quote that answers the question.

Respond with a single JSON object and nothing else, using exactly this schema:
{
  "answer_provided": <true if the context contains an answer, otherwise false>,
  "most_likely_answer": "<the most relevant quote from the context, or an empty string>",
  "highlighting1": ["<exact substrings of document 1 supporting the answer>"],
  "highlighting2": ["<exact substrings of document 2 supporting the answer>"],
  "highlighting3": ["<exact substrings of document 3 supporting the answer>"],
  "reasoning": "<one sentence explaining your choice>"
}

Highlighting spans must be copied verbatim from the document text. If the
context does not answer the question, set answer_provided to false and leave
the other fields empty.`

// BuildMessages formats the question and the filtered candidates into the
// chat turns handed to the synthesis model.
func BuildMessages(question string, docs []Candidate) []llmclient.Message {
	var b strings.Builder
	for i, doc := range docs {
		fmt.Fprintf(&b, "Document %d (%s, %s):\n%s\n\n", i+1, doc.Title, doc.Date, doc.Content)
	}
	fmt.Fprintf(&b, "Question: %s", question)

	return []llmclient.Message{
		{Role: "system", Content: extractiveSystemPrompt},
		{Role: "user", Content: b.String()},
	}
}
