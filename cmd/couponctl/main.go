package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

var Version = "v0.1.0"

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "couponctl:", describe(err))
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "couponctl",
		Usage:   "operate a shop's coupons, schedules and issues",
		Version: Version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "API base URL",
				Value:   "http://localhost:8080",
				Sources: cli.EnvVars("COUPONCTL_SERVER"),
			},
			&cli.StringFlag{
				Name:    "session",
				Usage:   "session file (default: user config dir)",
				Sources: cli.EnvVars("COUPONCTL_SESSION"),
			},
			&cli.StringFlag{
				Name:    "timezone",
				Usage:   "shop time zone used for local previews",
				Value:   "Asia/Tokyo",
				Sources: cli.EnvVars("SHOP_TIMEZONE"),
			},
		},
		Commands: []*cli.Command{
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			statsCommand(),
			couponsCommand(),
			issuesCommand(),
			schedulesCommand(),
			notificationsCommand(),
		},
	}
}
