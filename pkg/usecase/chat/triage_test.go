package chat_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/MMzeidan/zeidan-chat/pkg/model"
	"github.com/MMzeidan/zeidan-chat/pkg/repository"
	"github.com/MMzeidan/zeidan-chat/pkg/usecase/chat"
)

func TestTriageUngrounded(t *testing.T) {
	triage := chat.NewTriage(chat.DefaultPrompts())

	grounded := &model.Reply{Text: "We open at 9am."}
	gt.False(t, triage.Ungrounded(grounded))

	ungrounded := &model.Reply{Text: "Sorry, I cannot find the information you are looking for."}
	gt.True(t, triage.Ungrounded(ungrounded))

	gt.False(t, triage.Ungrounded(nil))
}

func TestTriageEscalate(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	defer store.Close()

	src := newTestIdentity("triage-user")
	queue, err := repository.Open(ctx, store, src, model.KindEscalations,
		repository.Options{}, model.DecodeEscalation)
	gt.NoError(t, err)
	defer queue.Close()
	gt.NoError(t, queue.Wait(ctx))

	triage := chat.NewTriage(chat.DefaultPrompts())
	gt.NoError(t, triage.Escalate(ctx, queue, "what is the refund policy?"))

	<-queue.Updates()
	items := queue.Items()
	gt.A(t, items).Length(1)
	gt.Equal(t, items[0].Question, "what is the refund policy?")
	gt.Equal(t, items[0].Status, model.StatusNew)
}

func TestTriageEscalateRejectsBlank(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	defer store.Close()

	src := newTestIdentity("triage-user")
	queue, err := repository.Open(ctx, store, src, model.KindEscalations,
		repository.Options{}, model.DecodeEscalation)
	gt.NoError(t, err)
	defer queue.Close()

	triage := chat.NewTriage(chat.DefaultPrompts())
	gt.Error(t, triage.Escalate(ctx, queue, "   "))
}
