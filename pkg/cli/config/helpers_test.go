package config_test

import (
	"context"

	"github.com/urfave/cli/v3"
)

func testCommand(flags []cli.Flag) *cli.Command {
	return &cli.Command{
		Name:  "test",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return nil
		},
	}
}
