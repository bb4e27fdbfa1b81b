package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/MMzeidan/zeidan-chat/pkg/adapter"
	"github.com/MMzeidan/zeidan-chat/pkg/model"
	"github.com/MMzeidan/zeidan-chat/pkg/repository"
)

// Session is one end-user conversation. It owns a knowledge replica, an
// escalation replica and the local transcript; the transcript is append-only
// and never persisted.
type Session struct {
	assembler *Assembler
	triage    *Triage
	prompts   Prompts

	faqs  *repository.Replica[*model.FAQ]
	queue *repository.Replica[*model.Escalation]

	mu           sync.Mutex
	messages     []model.Message
	lastReply    *model.Reply
	lastQuestion string
	closed       bool
}

// NewInput contains parameters for creating a chat session
type NewInput struct {
	Store    repository.Store
	Identity repository.IdentitySource
	Gemini   adapter.Gemini
	Prompts  Prompts
	Capacity int
}

func New(ctx context.Context, input NewInput) (*Session, error) {
	opts := repository.Options{Capacity: input.Capacity}

	faqs, err := repository.Open(ctx, input.Store, input.Identity, model.KindFAQs, opts, model.DecodeFAQ)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open knowledge replica")
	}

	queue, err := repository.Open(ctx, input.Store, input.Identity, model.KindEscalations, opts, model.DecodeEscalation)
	if err != nil {
		_ = faqs.Close()
		return nil, goerr.Wrap(err, "failed to open escalation replica")
	}

	return &Session{
		assembler: NewAssembler(input.Gemini, input.Prompts),
		triage:    NewTriage(input.Prompts),
		prompts:   input.Prompts,
		faqs:      faqs,
		queue:     queue,
	}, nil
}

// Wait blocks until the knowledge replica has its first snapshot, then
// greets the user. Safe to call more than once; the greeting is appended
// only on an empty transcript.
func (s *Session) Wait(ctx context.Context) error {
	if err := s.faqs.Wait(ctx); err != nil {
		return goerr.Wrap(err, "knowledge replica did not sync")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		s.messages = append(s.messages, model.Message{
			Sender: model.SenderAssistant,
			Text:   s.prompts.Welcome,
		})
	}

	return nil
}

// Send records the utterance, assembles a grounded reply against the
// current knowledge snapshot, and appends it to the transcript. The reply
// is discarded if the session was closed while generation was in flight.
func (s *Session) Send(ctx context.Context, text string) (*model.Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, goerr.New("utterance is empty")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, goerr.Wrap(repository.ErrReplicaClosed, "session is closed")
	}
	s.messages = append(s.messages, model.Message{
		Sender: model.SenderUser,
		Text:   text,
	})
	s.lastQuestion = text
	s.mu.Unlock()

	reply := s.assembler.Respond(ctx, text, s.faqs.Items())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, goerr.Wrap(repository.ErrReplicaClosed, "session is closed")
	}
	s.messages = append(s.messages, model.Message{
		Sender:   model.SenderAssistant,
		Text:     reply.Text,
		ImageURL: reply.ImageURL,
	})
	s.lastReply = reply

	return reply, nil
}

// Ungrounded reports whether the most recent reply failed to ground.
func (s *Session) Ungrounded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triage.Ungrounded(s.lastReply)
}

// EscalateLast forwards the most recent user question to the escalation
// queue and acknowledges it in the transcript.
func (s *Session) EscalateLast(ctx context.Context) error {
	s.mu.Lock()
	question := s.lastQuestion
	s.mu.Unlock()

	if err := s.triage.Escalate(ctx, s.queue, question); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.messages = append(s.messages, model.Message{
			Sender: model.SenderAssistant,
			Text:   s.prompts.EscalationAck,
		})
	}

	return nil
}

// Messages returns a copy of the transcript in arrival order.
func (s *Session) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Updates signals knowledge snapshot changes, for surfaces that re-render
// the entry list live.
func (s *Session) Updates() <-chan struct{} {
	return s.faqs.Updates()
}

// FAQs returns the current knowledge snapshot, most recent first.
func (s *Session) FAQs() []*model.FAQ {
	return s.faqs.Items()
}

// Close releases both replicas. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err1 := s.faqs.Close()
	err2 := s.queue.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
