package oracle

import (
	"fmt"
	"strings"
)

func extractionPrompt(text, question, hint string) string {
	var b strings.Builder
	b.WriteString("You are extracting story facts for a novelist's knowledge base.\n")
	if question != "" {
		fmt.Fprintf(&b, "The text answers the question: %q\n", question)
	}
	if hint != "" && hint != "general" {
		fmt.Fprintf(&b, "Expect mostly %s entities.\n", hint)
	}
	b.WriteString("\nText:\n")
	b.WriteString(text)
	b.WriteString(`

Return JSON only, in this shape:
{"entities": [{"type": "character|plot_event|setting", "name": "...",
"description": "...", "traits": [], "motivations": [], "role": "",
"kind": "", "rules": [], "existing_id": ""}], "confidence": 0.0}
Leave existing_id empty unless the text clearly refers to an entity id
you were given. Omit fields that do not apply.`)
	return b.String()
}

func relevancePrompt(answer, question string) string {
	return fmt.Sprintf(`A writer answered a different question with:
%q

Does that answer also resolve this open question: %q?

Return JSON only:
{"status": "fully|partially|none", "matched_entities": ["names"],
"inferred_answer": ""}
Set status to "fully" only when the answer settles the question outright;
"partially" when it gives real but incomplete context. Fill
inferred_answer only for "fully".`, answer, question)
}

func questionsPrompt(answer string, entities []string, hint string) string {
	var b strings.Builder
	b.WriteString("A writer is building out their story through Q&A. Their latest answer:\n")
	b.WriteString(answer)
	if len(entities) > 0 {
		fmt.Fprintf(&b, "\n\nEntities touched by this answer: %s", strings.Join(entities, ", "))
	}
	if hint != "" && hint != "general" {
		fmt.Fprintf(&b, "\nThe answered question concerned a %s.", hint)
	}
	b.WriteString(`

Propose 2 to 5 follow-up questions that deepen these facts. Return JSON
only: {"questions": [{"question": "...",
"entity_hint": "character|plot_event|setting|general"}]}`)
	return b.String()
}
