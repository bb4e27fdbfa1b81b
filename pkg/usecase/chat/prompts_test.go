package chat_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/MMzeidan/zeidan-chat/pkg/usecase/chat"
)

func TestDefaultPromptsMarkerInInstruction(t *testing.T) {
	p := chat.DefaultPrompts()
	gt.True(t, strings.Contains(p.Instruction, p.Marker))
}

func TestLoadPromptsOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yml")
	body := "welcome: \"Hi there!\"\nmarker: \"no answer found\"\n"
	gt.NoError(t, os.WriteFile(path, []byte(body), 0600))

	p, err := chat.LoadPrompts(path)
	gt.NoError(t, err)
	gt.Equal(t, p.Welcome, "Hi there!")
	gt.Equal(t, p.Marker, "no answer found")
	gt.Equal(t, p.Fallback, chat.DefaultPrompts().Fallback)
}

func TestLoadPromptsMissingFile(t *testing.T) {
	_, err := chat.LoadPrompts(filepath.Join(t.TempDir(), "absent.yml"))
	gt.Error(t, err)
}

func TestLoadPromptsEmptyMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yml")
	gt.NoError(t, os.WriteFile(path, []byte("marker: \"\"\n"), 0600))

	_, err := chat.LoadPrompts(path)
	gt.Error(t, err)
}
