package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/MMzeidan/zeidan-chat/pkg/adapter"
	"github.com/MMzeidan/zeidan-chat/pkg/model"
	"github.com/MMzeidan/zeidan-chat/pkg/repository"
	"github.com/MMzeidan/zeidan-chat/pkg/usecase/chat"
)

// testIdentity is a ready-made IdentitySource for session tests.
type testIdentity struct {
	mu    sync.Mutex
	id    model.Identity
	ready chan struct{}
	hooks []func(model.Identity)
}

func newTestIdentity(id model.Identity) *testIdentity {
	s := &testIdentity{
		id:    id,
		ready: make(chan struct{}),
	}
	close(s.ready)
	return s
}

func (s *testIdentity) Ready() <-chan struct{} { return s.ready }

func (s *testIdentity) Identity() model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *testIdentity) OnChange(fn func(model.Identity)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

func newSession(t *testing.T, store repository.Store, gemini adapter.Gemini) *chat.Session {
	t.Helper()
	ctx := context.Background()

	sess, err := chat.New(ctx, chat.NewInput{
		Store:    store,
		Identity: newTestIdentity("session-user"),
		Gemini:   gemini,
		Prompts:  chat.DefaultPrompts(),
	})
	gt.NoError(t, err)
	t.Cleanup(func() { sess.Close() })
	gt.NoError(t, sess.Wait(ctx))

	return sess
}

func TestSessionWelcome(t *testing.T) {
	store := repository.NewMemory()
	defer store.Close()

	gemini := geminiFunc(func(_ context.Context, _ string) (string, error) {
		return "ok", nil
	})
	sess := newSession(t, store, gemini)

	msgs := sess.Messages()
	gt.A(t, msgs).Length(1)
	gt.Equal(t, msgs[0].Sender, model.SenderAssistant)
	gt.Equal(t, msgs[0].Text, chat.DefaultPrompts().Welcome)
}

func TestSessionSendAppendsTranscript(t *testing.T) {
	store := repository.NewMemory()
	defer store.Close()

	gemini := geminiFunc(func(_ context.Context, _ string) (string, error) {
		return "We open at 9am.", nil
	})
	sess := newSession(t, store, gemini)

	reply, err := sess.Send(context.Background(), "when do you open?")
	gt.NoError(t, err)
	gt.Equal(t, reply.Text, "We open at 9am.")

	msgs := sess.Messages()
	gt.A(t, msgs).Length(3)
	gt.Equal(t, msgs[1].Sender, model.SenderUser)
	gt.Equal(t, msgs[1].Text, "when do you open?")
	gt.Equal(t, msgs[2].Sender, model.SenderAssistant)
	gt.Equal(t, msgs[2].Text, "We open at 9am.")
}

func TestSessionSendRejectsBlank(t *testing.T) {
	store := repository.NewMemory()
	defer store.Close()

	gemini := geminiFunc(func(_ context.Context, _ string) (string, error) {
		return "ok", nil
	})
	sess := newSession(t, store, gemini)

	_, err := sess.Send(context.Background(), "  ")
	gt.Error(t, err)
	gt.A(t, sess.Messages()).Length(1)
}

func TestSessionGroundedReplyUsesCuratedEntries(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	defer store.Close()

	owner := model.Identity("session-user")
	scope := repository.Scope{Kind: model.KindFAQs, Owner: owner}
	_, err := store.Insert(ctx, scope, map[string]any{
		model.FieldQuestion: "opening hours",
		model.FieldAnswer:   "9am to 5pm",
		model.FieldImageURL: "https://example.com/hours.png",
	})
	gt.NoError(t, err)

	gemini := geminiFunc(func(_ context.Context, prompt string) (string, error) {
		gt.S(t, prompt).Contains("9am to 5pm")
		return "We are open 9am to 5pm.", nil
	})
	sess := newSession(t, store, gemini)

	reply, err := sess.Send(ctx, "what are your opening hours?")
	gt.NoError(t, err)
	gt.Equal(t, reply.ImageURL, "https://example.com/hours.png")
}

func TestSessionEscalation(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	defer store.Close()

	prompts := chat.DefaultPrompts()
	gemini := geminiFunc(func(_ context.Context, _ string) (string, error) {
		return "Sorry, I cannot find the information you are looking for.", nil
	})
	sess := newSession(t, store, gemini)

	_, err := sess.Send(ctx, "do you ship to the moon?")
	gt.NoError(t, err)
	gt.True(t, sess.Ungrounded())

	gt.NoError(t, sess.EscalateLast(ctx))

	msgs := sess.Messages()
	gt.Equal(t, msgs[len(msgs)-1].Text, prompts.EscalationAck)

	// The escalation is visible to an independent reader of the same scope.
	queue, err := repository.Open(ctx, store, newTestIdentity("session-user"),
		model.KindEscalations, repository.Options{}, model.DecodeEscalation)
	gt.NoError(t, err)
	defer queue.Close()
	gt.NoError(t, queue.Wait(ctx))

	items := queue.Items()
	gt.A(t, items).Length(1)
	gt.Equal(t, items[0].Question, "do you ship to the moon?")
	gt.Equal(t, items[0].Status, model.StatusNew)
}

func TestSessionSendAfterClose(t *testing.T) {
	store := repository.NewMemory()
	defer store.Close()

	gemini := geminiFunc(func(_ context.Context, _ string) (string, error) {
		return "ok", nil
	})
	sess := newSession(t, store, gemini)
	gt.NoError(t, sess.Close())

	_, err := sess.Send(context.Background(), "hello?")
	gt.True(t, errors.Is(err, repository.ErrReplicaClosed))
}

func TestSessionSeesLiveCuration(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	defer store.Close()

	gemini := geminiFunc(func(_ context.Context, _ string) (string, error) {
		return "ok", nil
	})
	sess := newSession(t, store, gemini)
	gt.A(t, sess.FAQs()).Length(0)

	scope := repository.Scope{Kind: model.KindFAQs, Owner: model.Identity("session-user")}
	_, err := store.Insert(ctx, scope, map[string]any{
		model.FieldQuestion: "Q1",
		model.FieldAnswer:   "A1",
	})
	gt.NoError(t, err)

	<-sess.Updates()
	gt.A(t, sess.FAQs()).Length(1)
}
