package model

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one entry of a chat transcript. The transcript is append-only,
// ordered by arrival, local to one session and never persisted.
type Message struct {
	Sender   Sender
	Text     string
	ImageURL string
}

// Reply is the assembled assistant response to one utterance. ImageURL is
// set when a knowledge entry was matched against the reply or the utterance.
type Reply struct {
	Text     string
	ImageURL string
}
