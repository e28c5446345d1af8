package nlp

import (
	"fmt"
	"strings"

	"github.com/bdobrica/Kanri/internal/kanri/actions"
)

const systemPromptTmpl = `You are a Discord server administration command parser. Convert the user's instruction into JSON actions.

ALLOWED ACTIONS:
%s
RULES:
1. Respond ONLY with JSON of the form {"actions": [action1, action2, ...]}. No explanations, no markdown.
2. Use only the action types listed above.
3. Emit actions in the order they must run; create a category before any channel placed in it.
4. Refer to channels, roles and users exactly as the user named them, or by id or mention.
5. If nothing should be done, respond with {"actions": []}.`

// BuildSystemPrompt renders the fixed instructions listing every action kind.
func BuildSystemPrompt() string {
	var b strings.Builder
	for _, s := range actions.Catalogue {
		fmt.Fprintf(&b, "- %s: %s\n  %s\n", s.Kind, s.Example, s.Description)
	}
	return fmt.Sprintf(systemPromptTmpl, b.String())
}

// BuildPrompt pairs the system prompt with the instruction.
func BuildPrompt(instruction string) Prompt {
	return Prompt{System: BuildSystemPrompt(), Instruction: strings.TrimSpace(instruction)}
}

// Inline renders p as a single instruction-tuned text prompt for plain
// text-generation endpoints.
func (p Prompt) Inline() string {
	return fmt.Sprintf("<s>[INST] %s\n\nINSTRUCTION: %s [/INST]", p.System, p.Instruction)
}
