package curation

import (
	"context"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/MMzeidan/zeidan-chat/pkg/model"
	"github.com/MMzeidan/zeidan-chat/pkg/repository"
)

// ErrUnknownRecord is returned when an operation targets a record that is
// absent from the current snapshot.
var ErrUnknownRecord = goerr.New("record is not in the current snapshot")

// Console is the administrative surface over the knowledge base and the
// escalation queue. At most one knowledge entry is being edited at a time;
// submitting while no entry is selected creates a new one.
type Console struct {
	faqs  *repository.Replica[*model.FAQ]
	queue *repository.Replica[*model.Escalation]

	mu      sync.Mutex
	editing model.FAQID
}

// NewInput contains parameters for opening a curation console
type NewInput struct {
	Store    repository.Store
	Identity repository.IdentitySource
	Capacity int
}

func New(ctx context.Context, input NewInput) (*Console, error) {
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

	return &Console{
		faqs:  faqs,
		queue: queue,
	}, nil
}

// Wait blocks until both replicas have their first snapshot.
func (c *Console) Wait(ctx context.Context) error {
	if err := c.faqs.Wait(ctx); err != nil {
		return goerr.Wrap(err, "knowledge replica did not sync")
	}
	if err := c.queue.Wait(ctx); err != nil {
		return goerr.Wrap(err, "escalation replica did not sync")
	}
	return nil
}

// FAQs returns the current knowledge snapshot, most recent first.
func (c *Console) FAQs() []*model.FAQ {
	return c.faqs.Items()
}

// Escalations returns the current escalation snapshot, most recent first.
func (c *Console) Escalations() []*model.Escalation {
	return c.queue.Items()
}

// Updates signals a change in either snapshot.
func (c *Console) Updates() (faqs, escalations <-chan struct{}) {
	return c.faqs.Updates(), c.queue.Updates()
}

// Editing returns the entry currently selected for editing, if any.
func (c *Console) Editing() (model.FAQID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editing, c.editing != ""
}

// BeginEdit selects an existing entry for editing. The entry must be
// present in the current snapshot.
func (c *Console) BeginEdit(id model.FAQID) error {
	if c.lookup(id) == nil {
		return goerr.Wrap(ErrUnknownRecord, "cannot edit", goerr.V("id", id))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.editing = id
	return nil
}

// Cancel drops the current edit selection without writing anything.
func (c *Console) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editing = ""
}

// Submit writes the form. With an entry selected it patches that entry and
// clears the selection; otherwise it creates a new entry. Question and
// answer must be non-blank. The store assigns the write timestamp, so the
// touched entry surfaces at the top of the snapshot.
func (c *Console) Submit(ctx context.Context, question, answer, imageURL string) error {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return goerr.New("question and answer must not be empty")
	}

	fields := map[string]any{
		model.FieldQuestion: question,
		model.FieldAnswer:   answer,
		model.FieldImageURL: strings.TrimSpace(imageURL),
	}

	c.mu.Lock()
	editing := c.editing
	c.mu.Unlock()

	if editing != "" {
		if err := c.faqs.Update(ctx, string(editing), fields); err != nil {
			return goerr.Wrap(err, "failed to update entry", goerr.V("id", editing))
		}
		c.mu.Lock()
		if c.editing == editing {
			c.editing = ""
		}
		c.mu.Unlock()
		return nil
	}

	if _, err := c.faqs.Create(ctx, fields); err != nil {
		return goerr.Wrap(err, "failed to create entry")
	}
	return nil
}

// DeleteFAQ removes a knowledge entry. Deleting the entry currently being
// edited also drops the edit selection.
func (c *Console) DeleteFAQ(ctx context.Context, id model.FAQID) error {
	if err := c.faqs.Delete(ctx, string(id)); err != nil {
		return goerr.Wrap(err, "failed to delete entry", goerr.V("id", id))
	}

	c.mu.Lock()
	if c.editing == id {
		c.editing = ""
	}
	c.mu.Unlock()
	return nil
}

// DeleteEscalation removes a triaged question from the queue.
func (c *Console) DeleteEscalation(ctx context.Context, id model.EscalationID) error {
	if err := c.queue.Delete(ctx, string(id)); err != nil {
		return goerr.Wrap(err, "failed to delete escalation", goerr.V("id", id))
	}
	return nil
}

func (c *Console) lookup(id model.FAQID) *model.FAQ {
	for _, faq := range c.faqs.Items() {
		if faq.ID == id {
			return faq
		}
	}
	return nil
}

// Close releases both replicas. Idempotent.
func (c *Console) Close() error {
	err1 := c.faqs.Close()
	err2 := c.queue.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
