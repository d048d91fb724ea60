package openai

import (
	"fmt"

	"github.com/bookshelfai/bookshelfai/internal/domain"
)

// systemPrompt frames every request. Individual actions add their own
// instructions on top of the reader's book context.
const systemPrompt = `You are a literary assistant for a reader's personal bookshelf. You work from "memories": condensed notes about books the reader has catalogued. Ground everything you write in the supplied memory; do not invent plot points, quotes, or page references that are not supported by it. Write in the reader's language when the memory makes it evident.`

// actionInstructions maps each action type to its task-specific instruction.
var actionInstructions = map[domain.ActionType]string{
	domain.ActionMemory: `Distill the following book notes into a structured "memory": core themes, key arguments or plot beats, memorable passages, and the reader's own highlights. Keep it under 600 words and faithful to the source.`,

	domain.ActionScript: `Write a short-form video script (60-90 seconds of speech) presenting the most compelling idea from this book memory. Hook in the first sentence, one idea per paragraph, end with a question to the audience.`,

	domain.ActionIdeas: `Propose 5 content ideas derived from this book memory. For each: a working title, the angle, and the single passage or theme it builds on.`,

	domain.ActionQuotes: `Extract the most quotable passages from this book memory. For each quote give one sentence of context explaining why it matters.`,

	domain.ActionQuestions: `Write discussion questions for a reading group based on this book memory. Mix comprehension, interpretation, and application questions.`,

	domain.ActionChat: `Continue the conversation below. Answer as a knowledgeable companion who has read the book; when the memory does not cover something, say so instead of guessing.`,

	domain.ActionEditorialLine: `Define an editorial line for a content creator based on this book memory: the recurring angle, the tone, three pillar topics, and what to avoid.`,

	domain.ActionCrossReference: `The context contains memories of several books. Find the strongest connections between them: shared themes, contradictions, and one synthesis the reader could write about. Cite which book each point comes from.`,
}

// buildMessages assembles the chat messages for an action.
func buildMessages(action domain.ActionType, context string) []chatMessage {
	instruction, ok := actionInstructions[action]
	if !ok {
		instruction = "Respond helpfully to the following book context."
	}

	return []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("%s\n\n---\n\n%s", instruction, context)},
	}
}
