package assistant

import (
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const systemPromptTemplate = `You are AIVA (Artificial Intelligent Virtual Assistant), a helpful and friendly AI assistant specialized in troubleshooting technical issues.

Your personality:
- Friendly and supportive
- Clear and concise in explanations
- Step-by-step guidance for solutions
- Encouraging and positive tone

Knowledge Base:
%s

Instructions:
1. Analyze the user's problem carefully
2. If you find a matching solution in the knowledge base, provide it with clear steps
3. If the problem is complex or not in the knowledge base, suggest creating a ticket
4. Always be helpful and maintain a friendly tone
5. Format responses with clear bullet points or numbered steps when providing solutions`

// BuildKnowledgeContext renders the knowledge base as Problem/Category/Description/Solution
// blocks separated by blank lines.
func BuildKnowledgeContext(entries []domain.KnowledgeEntry) string {
	blocks := make([]string, 0, len(entries))
	for _, e := range entries {
		blocks = append(blocks, fmt.Sprintf("Problem: %s\nCategory: %s\nDescription: %s\nSolution: %s",
			e.Title, e.Category, e.Description, e.Solution))
	}
	return strings.Join(blocks, "\n\n")
}

// SystemPrompt returns the instruction sent ahead of every user message.
func SystemPrompt(entries []domain.KnowledgeEntry) string {
	return fmt.Sprintf(systemPromptTemplate, BuildKnowledgeContext(entries))
}
