package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "zeidan-chat",
		Usage: "Grounded FAQ assistant with live-curated knowledge",
		Commands: []*cli.Command{
			chatCommand(),
			faqCommand(),
			inboxCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
