package main

import (
	"context"
	"fmt"

	"coupon-scheduler/internal/model"
	"coupon-scheduler/pkg/client"

	"github.com/urfave/cli/v3"
)

func couponsCommand() *cli.Command {
	couponFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "title", Required: true},
			&cli.StringFlag{Name: "description", Required: true},
			&cli.StringFlag{Name: "conditions"},
			&cli.StringFlag{Name: "notes"},
			&cli.StringFlag{Name: "image-url"},
		}
	}

	return &cli.Command{
		Name:  "coupons",
		Usage: "list and edit coupon templates",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "coupons with their issue and schedule counters",
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					if err := requireLogin(c); err != nil {
						return err
					}
					coupons, err := c.Coupons(ctx)
					if err != nil {
						return err
					}
					w := newTable(writer(cmd), "ID", "TITLE", "ACTIVE ISSUES", "SCHEDULES", "TOTAL ISSUES")
					for _, cp := range coupons {
						w.row(cp.ID.Hex(), cp.Title, cp.ActiveIssuesCount, cp.SchedulesCount, cp.TotalIssuesCount)
					}
					return w.flush()
				}),
			},
			{
				Name:  "create",
				Usage: "create a coupon template",
				Flags: couponFlags(),
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					if err := requireLogin(c); err != nil {
						return err
					}
					coupon, err := c.CreateCoupon(ctx, couponRequest(cmd))
					if err != nil {
						return err
					}
					fmt.Fprintf(writer(cmd), "created coupon %s %q\n", coupon.ID.Hex(), coupon.Title)
					return nil
				}),
			},
			{
				Name:      "update",
				Usage:     "replace a coupon's fields",
				ArgsUsage: "<coupon-id>",
				Flags:     couponFlags(),
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					id, err := argID(cmd, "coupon id")
					if err != nil {
						return err
					}
					if err := requireLogin(c); err != nil {
						return err
					}
					coupon, err := c.UpdateCoupon(ctx, id, couponRequest(cmd))
					if err != nil {
						return err
					}
					fmt.Fprintf(writer(cmd), "updated coupon %s %q\n", coupon.ID.Hex(), coupon.Title)
					return nil
				}),
			},
		},
	}
}

func couponRequest(cmd *cli.Command) *model.CouponRequest {
	return &model.CouponRequest{
		Title:       cmd.String("title"),
		Description: cmd.String("description"),
		Conditions:  cmd.String("conditions"),
		Notes:       cmd.String("notes"),
		ImageURL:    cmd.String("image-url"),
	}
}
