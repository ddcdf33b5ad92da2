package gemini

import (
	"fmt"
	"strings"
)

// buildPrompt asks for a strict JSON verdict so the response survives
// mechanical parsing. sharedContext is optional operator guidance that
// applies to the whole batch
func buildPrompt(content, sharedContext string) string {
	var b strings.Builder

	b.WriteString(`You are a message triage assistant. Classify the message below as "productive" or "unproductive".

A message is productive when it requires an action or a specific reply: a question, a support request, a status update with follow-up. It is unproductive when it needs no action: greetings, thanks, congratulations, spam.

Respond with ONLY a JSON object, no prose and no markdown, in exactly this shape:
{"classification": "productive" | "unproductive", "suggested_reply": string | null}

For a productive message, suggested_reply is a short professional reply. For an unproductive message it is null.
`)

	if ctx := strings.TrimSpace(sharedContext); ctx != "" {
		fmt.Fprintf(&b, "\nAdditional context from the operator:\n%s\n", ctx)
	}

	fmt.Fprintf(&b, "\nMessage:\n%s\n", content)
	return b.String()
}
