package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/MMzeidan/zeidan-chat/pkg/model"
	"github.com/MMzeidan/zeidan-chat/pkg/repository"
	"github.com/MMzeidan/zeidan-chat/pkg/usecase/chat"
)

func chatCommand() *cli.Command {
	var (
		cfg  config
		seed string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "seed",
			Usage:       "Path to a JSON file of knowledge entries (local store only)",
			Destination: &seed,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Start an interactive chat session",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			store, err := cfg.newStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			src, err := cfg.newIdentity(ctx)
			if err != nil {
				return err
			}

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			prompts, err := cfg.loadPrompts()
			if err != nil {
				return err
			}

			if seed != "" {
				if !cfg.local {
					return goerr.New("--seed requires --local")
				}
				if err := seedStore(ctx, store, src, seed); err != nil {
					return err
				}
			}

			session, err := chat.New(ctx, chat.NewInput{
				Store:    store,
				Identity: src,
				Gemini:   gemini,
				Prompts:  prompts,
				Capacity: int(cfg.capacity),
			})
			if err != nil {
				return goerr.Wrap(err, "failed to create chat session")
			}
			defer session.Close()

			waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			if err := session.Wait(waitCtx); err != nil {
				return goerr.Wrap(err, "failed to sync knowledge base")
			}

			return chatLoop(ctx, c.Root().Writer, session)
		},
	}
}

func chatLoop(ctx context.Context, w io.Writer, session *chat.Session) error {
	rl, err := readline.New("you> ")
	if err != nil {
		return goerr.Wrap(err, "failed to open terminal")
	}
	defer rl.Close()

	for _, msg := range session.Messages() {
		printMessage(w, msg)
	}
	fmt.Fprintln(w, "(type 'exit' to quit, '/report' to forward an unanswered question)")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return goerr.Wrap(err, "failed to read input")
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "exit":
			return nil
		case line == "/report":
			if !session.Ungrounded() {
				fmt.Fprintln(w, "nothing to report: the last reply was answered")
				continue
			}
			if err := session.EscalateLast(ctx); err != nil {
				fmt.Fprintf(w, "report failed: %v\n", err)
				continue
			}
			msgs := session.Messages()
			printMessage(w, msgs[len(msgs)-1])
			continue
		}

		sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		sp.Suffix = " thinking..."
		sp.Start()
		reply, err := session.Send(ctx, line)
		sp.Stop()
		if err != nil {
			return goerr.Wrap(err, "failed to send message")
		}

		printMessage(w, model.Message{
			Sender:   model.SenderAssistant,
			Text:     reply.Text,
			ImageURL: reply.ImageURL,
		})
		if session.Ungrounded() {
			fmt.Fprintln(w, "(type '/report' to forward this question)")
		}
	}
}

func printMessage(w io.Writer, msg model.Message) {
	prefix := "you"
	if msg.Sender == model.SenderAssistant {
		prefix = "zeidan"
	}
	fmt.Fprintf(w, "%s> %s\n", prefix, msg.Text)
	if msg.ImageURL != "" {
		fmt.Fprintf(w, "        [image] %s\n", msg.ImageURL)
	}
}

// seedStore loads knowledge entries from a JSON file into the given scope.
// Local-store convenience for trying the assistant without Firestore.
func seedStore(ctx context.Context, store repository.Store, src repository.IdentitySource, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return goerr.Wrap(err, "failed to read seed file", goerr.V("path", path))
	}

	var entries []struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
		ImageURL string `json:"imageUrl"`
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return goerr.Wrap(err, "failed to parse seed file", goerr.V("path", path))
	}

	scope := repository.Scope{Kind: model.KindFAQs, Owner: src.Identity()}
	for _, e := range entries {
		_, err := store.Insert(ctx, scope, map[string]any{
			model.FieldQuestion: e.Question,
			model.FieldAnswer:   e.Answer,
			model.FieldImageURL: e.ImageURL,
		})
		if err != nil {
			return goerr.Wrap(err, "failed to seed entry", goerr.V("question", e.Question))
		}
	}

	return nil
}
