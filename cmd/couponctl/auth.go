package main

import (
	"context"
	"fmt"
	"time"

	"coupon-scheduler/pkg/client"

	"github.com/urfave/cli/v3"
)

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "sign in and store the session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true, Sources: cli.EnvVars("COUPONCTL_EMAIL")},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Required: true, Sources: cli.EnvVars("COUPONCTL_PASSWORD")},
		},
		Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
			resp, err := c.Login(ctx, cmd.String("email"), cmd.String("password"))
			if err != nil {
				return err
			}
			shop := ""
			if resp.User.Shop != nil {
				shop = " (" + resp.User.Shop.Name + ")"
			}
			fmt.Fprintf(writer(cmd), "logged in as %s%s, session valid until %s\n",
				resp.User.Name, shop, resp.ExpiresAt.Local().Format(time.DateTime))
			return nil
		}),
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "end the session",
		Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
			if c.Session().State() != client.StatePopulated {
				c.Session().Clear()
				return nil
			}
			if err := c.Logout(ctx); err != nil {
				fmt.Fprintf(writer(cmd), "server logout failed (%v), local session removed\n", err)
				return nil
			}
			fmt.Fprintln(writer(cmd), "logged out")
			return nil
		}),
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "show the signed-in operator and shop",
		Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
			if err := requireLogin(c); err != nil {
				return err
			}
			me, err := c.Me(ctx)
			if err != nil {
				return err
			}
			w := writer(cmd)
			fmt.Fprintf(w, "%s <%s> role=%s\n", me.Name, me.Email, me.Role)
			if me.Shop != nil {
				fmt.Fprintf(w, "shop: %s (%s)\n", me.Shop.Name, me.Shop.Slug)
			}
			return nil
		}),
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "dashboard counters and recent activity",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 10, Usage: "activities to show"},
		},
		Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
			if err := requireLogin(c); err != nil {
				return err
			}
			stats, err := c.DashboardStats(ctx)
			if err != nil {
				return err
			}
			activities, err := c.Activities(ctx, int(cmd.Int("limit")))
			if err != nil {
				return err
			}

			w := newTable(writer(cmd))
			w.row("coupons", stats.CouponsCount)
			w.row("active issues", stats.ActiveIssuesCount)
			w.row("active schedules", stats.ActiveSchedulesCount)
			w.row("acquisitions today", stats.AcquisitionsToday)
			w.row("unread notifications", stats.UnreadNotifications)
			if err := w.flush(); err != nil {
				return err
			}

			if len(activities) == 0 {
				return nil
			}
			fmt.Fprintln(writer(cmd))
			w = newTable(writer(cmd), "TIME", "TYPE", "MESSAGE")
			for _, a := range activities {
				w.row(a.Time.Local().Format(time.DateTime), a.Type, a.Message)
			}
			return w.flush()
		}),
	}
}
