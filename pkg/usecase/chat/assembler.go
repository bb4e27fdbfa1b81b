package chat

import (
	"context"
	"strings"

	"github.com/MMzeidan/zeidan-chat/pkg/adapter"
	"github.com/MMzeidan/zeidan-chat/pkg/model"
	"github.com/MMzeidan/zeidan-chat/pkg/utils/logging"
)

// Assembler turns one user utterance and the current knowledge snapshot into
// an assistant reply. It holds no state between calls.
type Assembler struct {
	gemini  adapter.Gemini
	prompts Prompts
}

func NewAssembler(gemini adapter.Gemini, prompts Prompts) *Assembler {
	return &Assembler{
		gemini:  gemini,
		prompts: prompts,
	}
}

// Respond assembles a reply for the utterance against the given knowledge
// entries. It never returns an error: generation failures and empty
// responses degrade to the fallback text so the conversation can continue.
func (a *Assembler) Respond(ctx context.Context, utterance string, entries []*model.FAQ) *model.Reply {
	prompt := a.buildPrompt(utterance, entries)

	text, err := a.gemini.Complete(ctx, prompt)
	if err != nil || text == "" {
		logging.From(ctx).Warn("falling back: generation failed",
			"error", err,
			"entries", len(entries),
		)
		return &model.Reply{Text: a.prompts.Fallback}
	}

	reply := &model.Reply{Text: text}
	if faq := matchEntry(text, utterance, entries); faq != nil && faq.ImageURL != "" {
		reply.ImageURL = faq.ImageURL
	}

	return reply
}

// buildPrompt lists the knowledge entries in snapshot order, then the
// utterance. An empty snapshot still goes to the model: the instruction
// makes it answer honestly that nothing is known.
func (a *Assembler) buildPrompt(utterance string, entries []*model.FAQ) string {
	var b strings.Builder
	b.WriteString(a.prompts.Instruction)
	b.WriteString("\n\nKnowledge entries:\n")
	for _, e := range entries {
		b.WriteString("- Question: ")
		b.WriteString(e.Question)
		b.WriteString("\n  Answer: ")
		b.WriteString(e.Answer)
		b.WriteString("\n")
	}
	b.WriteString("\nUser question: ")
	b.WriteString(utterance)

	return b.String()
}

// matchEntry finds the first entry whose answer appears in the reply or
// whose question appears in the utterance, in snapshot order. Best-effort:
// there is no ranking beyond snapshot order, and the winner may carry no
// image. Entries with an empty question or answer never match, since an
// empty substring is contained in everything.
func matchEntry(reply, utterance string, entries []*model.FAQ) *model.FAQ {
	for _, e := range entries {
		if e.Answer != "" && strings.Contains(reply, e.Answer) {
			return e
		}
		if e.Question != "" && strings.Contains(utterance, e.Question) {
			return e
		}
	}

	return nil
}
