package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/MMzeidan/zeidan-chat/pkg/adapter"
	"github.com/MMzeidan/zeidan-chat/pkg/model"
	"github.com/MMzeidan/zeidan-chat/pkg/usecase/curation"
)

func faqCommand() *cli.Command {
	return &cli.Command{
		Name:  "faq",
		Usage: "Curate the knowledge base",
		Commands: []*cli.Command{
			faqAddCommand(),
			faqListCommand(),
			faqEditCommand(),
			faqRemoveCommand(),
		},
	}
}

// openConsole authenticates the operator and opens a synced curation console.
func openConsole(ctx context.Context, cfg *config, admin *adminConfig) (*curation.Console, func(), error) {
	if err := admin.requireAdmin(); err != nil {
		return nil, nil, err
	}

	store, err := cfg.newStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	src, err := cfg.newIdentity(ctx)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	console, err := curation.New(ctx, curation.NewInput{
		Store:    store,
		Identity: src,
		Capacity: int(cfg.capacity),
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := console.Wait(waitCtx); err != nil {
		console.Close()
		store.Close()
		return nil, nil, goerr.Wrap(err, "failed to sync replicas")
	}

	cleanup := func() {
		console.Close()
		store.Close()
	}
	return console, cleanup, nil
}

// resolveImage returns the image URL for an entry, uploading a local file
// first when one is given.
func resolveImage(ctx context.Context, cfg *adminConfig, imageURL, imageFile string) (string, error) {
	if imageFile == "" {
		return imageURL, nil
	}
	if imageURL != "" {
		return "", goerr.New("image-url and image-file are exclusive")
	}
	if cfg.bucket == "" {
		return "", goerr.New("bucket is required to upload images")
	}

	f, err := os.Open(imageFile)
	if err != nil {
		return "", goerr.Wrap(err, "failed to open image file", goerr.V("path", imageFile))
	}
	defer f.Close()

	storage, err := adapter.NewStorage(ctx, cfg.bucket)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("faq-images/%s%s", model.NewFAQID(), filepath.Ext(imageFile))
	url, err := storage.Upload(ctx, key, f, contentTypeByExt(imageFile))
	if err != nil {
		return "", goerr.Wrap(err, "failed to upload image")
	}

	return url, nil
}

func contentTypeByExt(path string) string {
	switch filepath.Ext(path) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

func faqAddCommand() *cli.Command {
	var (
		cfg       config
		admin     adminConfig
		question  string
		answer    string
		imageURL  string
		imageFile string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "question",
			Aliases:     []string{"q"},
			Usage:       "Question text",
			Required:    true,
			Destination: &question,
		},
		&cli.StringFlag{
			Name:        "answer",
			Aliases:     []string{"a"},
			Usage:       "Answer text",
			Required:    true,
			Destination: &answer,
		},
		&cli.StringFlag{
			Name:        "image-url",
			Usage:       "URL of an illustration image",
			Destination: &imageURL,
		},
		&cli.StringFlag{
			Name:        "image-file",
			Usage:       "Local image to upload to the bucket",
			Destination: &imageFile,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, adminFlags(&admin)...)

	return &cli.Command{
		Name:  "add",
		Usage: "Add a knowledge entry",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			console, cleanup, err := openConsole(ctx, &cfg, &admin)
			if err != nil {
				return err
			}
			defer cleanup()

			url, err := resolveImage(ctx, &admin, imageURL, imageFile)
			if err != nil {
				return err
			}

			if err := console.Submit(ctx, question, answer, url); err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, "added")
			return nil
		},
	}
}

func faqListCommand() *cli.Command {
	var (
		cfg   config
		admin adminConfig
	)

	flags := append(globalFlags(&cfg), adminFlags(&admin)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List knowledge entries, most recent first",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			console, cleanup, err := openConsole(ctx, &cfg, &admin)
			if err != nil {
				return err
			}
			defer cleanup()

			printFAQs(c.Root().Writer, console.FAQs())
			return nil
		},
	}
}

func printFAQs(w io.Writer, faqs []*model.FAQ) {
	if len(faqs) == 0 {
		fmt.Fprintln(w, "no entries")
		return
	}
	for _, faq := range faqs {
		fmt.Fprintf(w, "%s  %s\n", faq.ID, faq.UpdatedAt.Format(time.RFC3339))
		fmt.Fprintf(w, "  Q: %s\n", faq.Question)
		fmt.Fprintf(w, "  A: %s\n", faq.Answer)
		if faq.ImageURL != "" {
			fmt.Fprintf(w, "  image: %s\n", faq.ImageURL)
		}
	}
}

func faqEditCommand() *cli.Command {
	var (
		cfg       config
		admin     adminConfig
		id        string
		question  string
		answer    string
		imageURL  string
		imageFile string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "id",
			Usage:       "Entry ID to edit",
			Required:    true,
			Destination: &id,
		},
		&cli.StringFlag{
			Name:        "question",
			Aliases:     []string{"q"},
			Usage:       "New question text (default: keep current)",
			Destination: &question,
		},
		&cli.StringFlag{
			Name:        "answer",
			Aliases:     []string{"a"},
			Usage:       "New answer text (default: keep current)",
			Destination: &answer,
		},
		&cli.StringFlag{
			Name:        "image-url",
			Usage:       "New image URL (default: keep current)",
			Destination: &imageURL,
		},
		&cli.StringFlag{
			Name:        "image-file",
			Usage:       "Local image to upload to the bucket",
			Destination: &imageFile,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, adminFlags(&admin)...)

	return &cli.Command{
		Name:  "edit",
		Usage: "Edit a knowledge entry",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			console, cleanup, err := openConsole(ctx, &cfg, &admin)
			if err != nil {
				return err
			}
			defer cleanup()

			var current *model.FAQ
			for _, faq := range console.FAQs() {
				if faq.ID == model.FAQID(id) {
					current = faq
					break
				}
			}
			if current == nil {
				return goerr.Wrap(curation.ErrUnknownRecord, "cannot edit", goerr.V("id", id))
			}

			if question == "" {
				question = current.Question
			}
			if answer == "" {
				answer = current.Answer
			}

			url, err := resolveImage(ctx, &admin, imageURL, imageFile)
			if err != nil {
				return err
			}
			if url == "" {
				url = current.ImageURL
			}

			if err := console.BeginEdit(current.ID); err != nil {
				return err
			}
			if err := console.Submit(ctx, question, answer, url); err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, "updated")
			return nil
		},
	}
}

func faqRemoveCommand() *cli.Command {
	var (
		cfg   config
		admin adminConfig
		id    string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "id",
			Usage:       "Entry ID to delete",
			Required:    true,
			Destination: &id,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, adminFlags(&admin)...)

	return &cli.Command{
		Name:  "rm",
		Usage: "Delete a knowledge entry",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			console, cleanup, err := openConsole(ctx, &cfg, &admin)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := console.DeleteFAQ(ctx, model.FAQID(id)); err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, "deleted")
			return nil
		},
	}
}
