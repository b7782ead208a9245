package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"coupon-scheduler/internal/model"
	"coupon-scheduler/internal/status"
	"coupon-scheduler/pkg/client"

	"github.com/urfave/cli/v3"
)

// durationPresets are the issue-now lengths offered to operators, in minutes.
var durationPresets = []int{30, 60, 120, 180, 360, 720, 1440}

func issuesCommand() *cli.Command {
	return &cli.Command{
		Name:  "issues",
		Usage: "live coupon issues",
		Commands: []*cli.Command{
			{
				Name:  "active",
				Usage: "issues that are live or about to start",
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					if err := requireLogin(c); err != nil {
						return err
					}
					issues, err := c.ActiveIssues(ctx)
					if err != nil {
						return err
					}
					return printIssues(cmd, issues)
				}),
			},
			{
				Name:      "show",
				Usage:     "one issue with its acquisitions",
				ArgsUsage: "<issue-id>",
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					id, err := argID(cmd, "issue id")
					if err != nil {
						return err
					}
					if err := requireLogin(c); err != nil {
						return err
					}
					issue, err := c.Issue(ctx, id)
					if err != nil {
						return err
					}
					if err := printIssues(cmd, []status.IssueView{*issue}); err != nil {
						return err
					}
					acquisitions, err := c.IssueAcquisitions(ctx, id)
					if err != nil {
						return err
					}
					if len(acquisitions) == 0 {
						return nil
					}
					fmt.Fprintln(writer(cmd))
					w := newTable(writer(cmd), "USER", "NAME", "ACQUIRED", "USABLE")
					for _, a := range acquisitions {
						w.row(a.UserID, a.UserName, a.AcquiredAt.Local().Format(time.DateTime), a.IsUsable)
					}
					return w.flush()
				}),
			},
			{
				Name:      "now",
				Usage:     "start a manual issue, stopping any live issue of the coupon",
				ArgsUsage: "<coupon-id>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "duration", Aliases: []string{"d"}, Value: 60, Usage: "minutes, one of " + presetList()},
					&cli.IntFlag{Name: "max", Usage: "acquisition cap, 0 for unlimited"},
				},
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					id, err := argID(cmd, "coupon id")
					if err != nil {
						return err
					}
					req, err := issueNowRequest(int(cmd.Int("duration")), int(cmd.Int("max")))
					if err != nil {
						return err
					}
					if err := requireLogin(c); err != nil {
						return err
					}
					issue, err := c.IssueNow(ctx, id, req)
					if err != nil {
						return err
					}
					fmt.Fprintf(writer(cmd), "issued %s until %s\n", issue.ID.Hex(), issue.EndDateTime.Local().Format(time.DateTime))
					return nil
				}),
			},
			{
				Name:      "stop",
				Usage:     "cancel an issue",
				ArgsUsage: "<issue-id>",
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					id, err := argID(cmd, "issue id")
					if err != nil {
						return err
					}
					if err := requireLogin(c); err != nil {
						return err
					}
					if _, err := c.StopIssue(ctx, id); err != nil {
						return err
					}
					fmt.Fprintf(writer(cmd), "stopped %s\n", id)
					return nil
				}),
			},
			{
				Name:      "acquire",
				Usage:     "acquire an issue on behalf of a user",
				ArgsUsage: "<issue-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Required: true},
					&cli.StringFlag{Name: "name"},
				},
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					id, err := argID(cmd, "issue id")
					if err != nil {
						return err
					}
					if err := requireLogin(c); err != nil {
						return err
					}
					a, err := c.Acquire(ctx, id, &model.AcquireRequest{UserID: cmd.String("user"), UserName: cmd.String("name")})
					if err != nil {
						return err
					}
					if a.Created {
						fmt.Fprintf(writer(cmd), "acquired by %s, usable until %s\n", a.UserID, a.ExpiredAt.Local().Format(time.DateTime))
					} else {
						fmt.Fprintf(writer(cmd), "%s already holds this coupon\n", a.UserID)
					}
					return nil
				}),
			},
		},
	}
}

func issueNowRequest(duration, capacity int) (*model.IssueNowRequest, error) {
	if !slices.Contains(durationPresets, duration) {
		return nil, fmt.Errorf("duration must be one of %s minutes", presetList())
	}
	if capacity < 0 {
		return nil, errors.New("max must not be negative")
	}
	req := &model.IssueNowRequest{DurationMinutes: duration}
	if capacity > 0 {
		req.MaxAcquisitions = &capacity
	}
	return req, nil
}

func presetList() string {
	parts := make([]string, len(durationPresets))
	for i, p := range durationPresets {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ",")
}

func printIssues(cmd *cli.Command, issues []status.IssueView) error {
	w := newTable(writer(cmd), "ID", "COUPON", "TYPE", "STATUS", "REMAINING", "ACQUIRED", "TIME LEFT")
	for _, v := range issues {
		w.row(v.ID.Hex(), v.Coupon.Title, v.IssueType, v.Status, v.RemainingCount, v.CurrentAcquisitions, status.FormatRemaining(v.TimeRemaining))
	}
	return w.flush()
}

func argID(cmd *cli.Command, what string) (string, error) {
	if cmd.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one argument: %s", what)
	}
	return cmd.Args().First(), nil
}
