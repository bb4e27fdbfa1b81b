package chat

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// Prompts holds every text the assistant emits or matches against. Marker
// must appear verbatim in Instruction so the model can be told to emit it:
// an ungrounded reply is detected by substring, not by structured output.
type Prompts struct {
	Instruction   string `yaml:"instruction"`
	Marker        string `yaml:"marker"`
	Fallback      string `yaml:"fallback"`
	Welcome       string `yaml:"welcome"`
	EscalationAck string `yaml:"escalation_ack"`
}

// DefaultPrompts returns the built-in prompt set.
func DefaultPrompts() Prompts {
	return Prompts{
		Instruction: "You are a friendly assistant answering on behalf of Zeidan. " +
			"Answer the user's question using ONLY the knowledge entries below. " +
			"Do not invent facts. If the entries do not cover the question, " +
			"reply exactly: \"Sorry, I cannot find the information you are looking for. " +
			"Would you like me to forward your question?\"",
		Marker:        "cannot find the information",
		Fallback:      "Sorry, something went wrong while preparing an answer. Please try again.",
		Welcome:       "Hello! I am Zeidan's assistant. How can I help you today?",
		EscalationAck: "Your question has been forwarded. You will get an answer soon.",
	}
}

// LoadPrompts reads a YAML prompt pack and overlays it on the defaults.
// Fields absent from the file keep their built-in values.
func LoadPrompts(path string) (Prompts, error) {
	p := DefaultPrompts()

	raw, err := os.ReadFile(path)
	if err != nil {
		return p, goerr.Wrap(err, "failed to read prompt pack", goerr.V("path", path))
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return p, goerr.Wrap(err, "failed to parse prompt pack", goerr.V("path", path))
	}

	if p.Marker == "" {
		return p, goerr.New("prompt pack has empty marker", goerr.V("path", path))
	}

	return p, nil
}
