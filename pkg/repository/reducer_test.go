package repository_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/MMzeidan/zeidan-chat/pkg/model"
	"github.com/MMzeidan/zeidan-chat/pkg/repository"
)

func faqDoc(id, question, answer string, ts time.Time) repository.Document {
	return repository.Document{
		ID: id,
		Fields: map[string]any{
			model.FieldQuestion:  question,
			model.FieldAnswer:    answer,
			model.FieldTimestamp: ts,
		},
	}
}

func TestReduce(t *testing.T) {
	now := time.Now()
	snap := repository.Snapshot{
		faqDoc("a", "Q1", "A1", now),
		faqDoc("b", "Q2", "A2", now.Add(-time.Minute)),
	}

	items, skipped := repository.Reduce(snap, 10, model.DecodeFAQ)
	gt.Equal(t, skipped, 0)
	gt.A(t, items).Length(2)
	gt.Equal(t, items[0].ID, model.FAQID("a"))
	gt.Equal(t, items[1].ID, model.FAQID("b"))
}

func TestReduceSkipsUndecodable(t *testing.T) {
	now := time.Now()
	snap := repository.Snapshot{
		faqDoc("a", "Q1", "A1", now),
		{ID: "broken", Fields: map[string]any{model.FieldQuestion: "only a question"}},
		faqDoc("b", "Q2", "A2", now.Add(-time.Minute)),
	}

	items, skipped := repository.Reduce(snap, 10, model.DecodeFAQ)
	gt.Equal(t, skipped, 1)
	gt.A(t, items).Length(2)
}

func TestReduceCapacity(t *testing.T) {
	now := time.Now()
	snap := repository.Snapshot{
		faqDoc("a", "Q1", "A1", now),
		faqDoc("b", "Q2", "A2", now.Add(-time.Minute)),
		faqDoc("c", "Q3", "A3", now.Add(-2*time.Minute)),
	}

	items, skipped := repository.Reduce(snap, 2, model.DecodeFAQ)
	gt.Equal(t, skipped, 0)
	gt.A(t, items).Length(2)
	gt.Equal(t, items[0].ID, model.FAQID("a"))
	gt.Equal(t, items[1].ID, model.FAQID("b"))
}

func TestReduceIdempotent(t *testing.T) {
	now := time.Now()
	snap := repository.Snapshot{
		faqDoc("a", "Q1", "A1", now),
		faqDoc("b", "Q2", "A2", now.Add(-time.Minute)),
	}

	first, _ := repository.Reduce(snap, 10, model.DecodeFAQ)
	second, _ := repository.Reduce(snap, 10, model.DecodeFAQ)
	gt.Equal(t, first, second)
}
