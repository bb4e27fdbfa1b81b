package chat

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/MMzeidan/zeidan-chat/pkg/model"
	"github.com/MMzeidan/zeidan-chat/pkg/repository"
)

// Triage detects replies the assistant could not ground and records the
// unanswered question for human follow-up.
type Triage struct {
	marker string
}

func NewTriage(prompts Prompts) *Triage {
	return &Triage{marker: prompts.Marker}
}

// Ungrounded reports whether the reply carries the instruction's marker
// phrase. Literal substring match: the instruction tells the model to emit
// the phrase verbatim when the knowledge entries do not cover the question.
func (t *Triage) Ungrounded(reply *model.Reply) bool {
	if reply == nil {
		return false
	}
	return strings.Contains(reply.Text, t.marker)
}

// Escalate records the question in the escalation queue with a fresh "new"
// status. Blank questions are rejected before touching the store.
func (t *Triage) Escalate(ctx context.Context, queue *repository.Replica[*model.Escalation], question string) error {
	if strings.TrimSpace(question) == "" {
		return goerr.New("escalation question is empty")
	}

	_, err := queue.Create(ctx, map[string]any{
		model.FieldQuestion: question,
		model.FieldStatus:   string(model.StatusNew),
	})
	if err != nil {
		return goerr.Wrap(err, "failed to record escalation")
	}

	return nil
}
