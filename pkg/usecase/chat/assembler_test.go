package chat_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/MMzeidan/zeidan-chat/pkg/model"
	"github.com/MMzeidan/zeidan-chat/pkg/usecase/chat"
)

// geminiFunc adapts a plain function to the generation interface.
type geminiFunc func(ctx context.Context, prompt string) (string, error)

func (f geminiFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func TestAssemblerAttachesImageOnAnswerMatch(t *testing.T) {
	gemini := geminiFunc(func(_ context.Context, _ string) (string, error) {
		return "A1", nil
	})
	asm := chat.NewAssembler(gemini, chat.DefaultPrompts())

	entries := []*model.FAQ{
		{ID: "1", Question: "Q1", Answer: "A1", ImageURL: "I1"},
	}

	reply := asm.Respond(context.Background(), "anything", entries)
	gt.Equal(t, reply.Text, "A1")
	gt.Equal(t, reply.ImageURL, "I1")
}

func TestAssemblerAttachesImageOnQuestionMatch(t *testing.T) {
	gemini := geminiFunc(func(_ context.Context, _ string) (string, error) {
		return "an unrelated reply", nil
	})
	asm := chat.NewAssembler(gemini, chat.DefaultPrompts())

	entries := []*model.FAQ{
		{ID: "1", Question: "opening hours", Answer: "9am to 5pm", ImageURL: "I1"},
	}

	reply := asm.Respond(context.Background(), "what are your opening hours?", entries)
	gt.Equal(t, reply.ImageURL, "I1")
}

func TestAssemblerNoAttachmentWithoutMatch(t *testing.T) {
	gemini := geminiFunc(func(_ context.Context, _ string) (string, error) {
		return "no entry text here", nil
	})
	asm := chat.NewAssembler(gemini, chat.DefaultPrompts())

	entries := []*model.FAQ{
		{ID: "1", Question: "Q1", Answer: "A1", ImageURL: "I1"},
	}

	reply := asm.Respond(context.Background(), "something else", entries)
	gt.Equal(t, reply.ImageURL, "")
}

func TestAssemblerFirstMatchWins(t *testing.T) {
	gemini := geminiFunc(func(_ context.Context, _ string) (string, error) {
		return "A1 and A2", nil
	})
	asm := chat.NewAssembler(gemini, chat.DefaultPrompts())

	entries := []*model.FAQ{
		{ID: "1", Question: "Q1", Answer: "A1", ImageURL: "I1"},
		{ID: "2", Question: "Q2", Answer: "A2", ImageURL: "I2"},
	}

	reply := asm.Respond(context.Background(), "anything", entries)
	gt.Equal(t, reply.ImageURL, "I1")
}

func TestAssemblerMatchWithoutImageIsFinal(t *testing.T) {
	// The first matching entry wins even when it carries no image; a later
	// entry with an image does not take over.
	gemini := geminiFunc(func(_ context.Context, _ string) (string, error) {
		return "A1 and A2", nil
	})
	asm := chat.NewAssembler(gemini, chat.DefaultPrompts())

	entries := []*model.FAQ{
		{ID: "1", Question: "Q1", Answer: "A1"},
		{ID: "2", Question: "Q2", Answer: "A2", ImageURL: "I2"},
	}

	reply := asm.Respond(context.Background(), "anything", entries)
	gt.Equal(t, reply.ImageURL, "")
}

func TestAssemblerPromptCarriesEntriesAndUtterance(t *testing.T) {
	var captured string
	gemini := geminiFunc(func(_ context.Context, prompt string) (string, error) {
		captured = prompt
		return "ok", nil
	})
	asm := chat.NewAssembler(gemini, chat.DefaultPrompts())

	entries := []*model.FAQ{
		{ID: "1", Question: "Where is the shop?", Answer: "Downtown."},
	}

	asm.Respond(context.Background(), "where are you located?", entries)
	gt.S(t, captured).Contains("Where is the shop?")
	gt.S(t, captured).Contains("Downtown.")
	gt.S(t, captured).Contains("where are you located?")
}

func TestAssemblerFallbackOnError(t *testing.T) {
	gemini := geminiFunc(func(_ context.Context, _ string) (string, error) {
		return "", goerr.New("service unavailable")
	})
	prompts := chat.DefaultPrompts()
	asm := chat.NewAssembler(gemini, prompts)

	reply := asm.Respond(context.Background(), "anything", nil)
	gt.Equal(t, reply.Text, prompts.Fallback)
	gt.Equal(t, reply.ImageURL, "")
}

func TestAssemblerFallbackOnEmptyResponse(t *testing.T) {
	gemini := geminiFunc(func(_ context.Context, _ string) (string, error) {
		return "", nil
	})
	prompts := chat.DefaultPrompts()
	asm := chat.NewAssembler(gemini, prompts)

	reply := asm.Respond(context.Background(), "anything", nil)
	gt.Equal(t, reply.Text, prompts.Fallback)
}

func TestAssemblerEmptySnapshotStillAsks(t *testing.T) {
	var captured string
	gemini := geminiFunc(func(_ context.Context, prompt string) (string, error) {
		captured = prompt
		return "Sorry, I cannot find the information you are looking for.", nil
	})
	asm := chat.NewAssembler(gemini, chat.DefaultPrompts())

	reply := asm.Respond(context.Background(), "anything", nil)
	gt.S(t, captured).Contains("anything")
	gt.S(t, reply.Text).Contains("cannot find the information")
}
