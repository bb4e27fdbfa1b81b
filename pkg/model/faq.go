package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// KindFAQs is the collection kind holding curated knowledge entries.
const KindFAQs = "faqs"

// Field names of an FAQ document in the authoritative store.
const (
	FieldQuestion  = "question"
	FieldAnswer    = "answer"
	FieldImageURL  = "imageUrl"
	FieldTimestamp = "timestamp"
)

type FAQID string

// NewFAQID generates a new unique FAQID
func NewFAQID() FAQID {
	return FAQID(uuid.New().String())
}

// FAQ is one curated knowledge entry. UpdatedAt is assigned by the
// authoritative store at write time and is non-decreasing per record.
type FAQ struct {
	ID        FAQID
	Question  string
	Answer    string
	ImageURL  string
	UpdatedAt time.Time
}

// DecodeFAQ builds an FAQ from a stored document. Question and answer are
// mandatory; a missing timestamp (not yet resolved by the store) decodes as
// the zero time.
func DecodeFAQ(id string, fields map[string]any) (*FAQ, error) {
	question, ok := fields[FieldQuestion].(string)
	if !ok || question == "" {
		return nil, goerr.New("faq document has no question", goerr.V("id", id))
	}
	answer, ok := fields[FieldAnswer].(string)
	if !ok || answer == "" {
		return nil, goerr.New("faq document has no answer", goerr.V("id", id))
	}

	faq := &FAQ{
		ID:       FAQID(id),
		Question: question,
		Answer:   answer,
	}
	if url, ok := fields[FieldImageURL].(string); ok {
		faq.ImageURL = url
	}
	if ts, ok := fields[FieldTimestamp].(time.Time); ok {
		faq.UpdatedAt = ts
	}

	return faq, nil
}
