package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"coupon-scheduler/internal/model"
	"coupon-scheduler/pkg/client"
	apperrors "coupon-scheduler/pkg/errors"
	"coupon-scheduler/pkg/poller"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func notificationsCommand() *cli.Command {
	return &cli.Command{
		Name:  "notifications",
		Usage: "acquisition notifications",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "recent notifications",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20},
				},
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					if err := requireLogin(c); err != nil {
						return err
					}
					list, err := c.Notifications(ctx, int(cmd.Int("limit")))
					if err != nil {
						return err
					}
					fmt.Fprintf(writer(cmd), "%d unread\n", list.UnreadCount)
					w := newTable(writer(cmd), "ID", "WHEN", "USER", "COUPON", "READ")
					for _, n := range list.Notifications {
						w.row(n.ID.Hex(), n.AcquiredAt.Local().Format(time.DateTime), userLabel(n), n.CouponIssue.Coupon.Title, n.IsRead)
					}
					return w.flush()
				}),
			},
			{
				Name:      "read",
				Usage:     "mark one notification as read",
				ArgsUsage: "<notification-id>",
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					id, err := argID(cmd, "notification id")
					if err != nil {
						return err
					}
					if err := requireLogin(c); err != nil {
						return err
					}
					return c.MarkRead(ctx, id)
				}),
			},
			{
				Name:  "read-all",
				Usage: "mark every notification as read",
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					if err := requireLogin(c); err != nil {
						return err
					}
					return c.MarkAllRead(ctx)
				}),
			},
			{
				Name:  "watch",
				Usage: "print new acquisitions as they arrive until interrupted",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "banner-interval", Value: client.BannerInterval},
					&cli.DurationFlag{Name: "list-interval", Value: client.ListInterval},
				},
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					if err := requireLogin(c); err != nil {
						return err
					}
					ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
					defer stop()
					return newWatcher(c, writer(cmd)).run(ctx, cmd.Duration("banner-interval"), cmd.Duration("list-interval"))
				}),
			},
		},
	}
}

func userLabel(n *model.Notification) string {
	if n.UserName != "" {
		return n.UserName
	}
	return n.UserID
}

// watcher drives the two polls of the notification view: a banner poll that
// announces each acquisition once, and a slower poll of the unread badge.
type watcher struct {
	c   *client.Client
	out io.Writer

	mu     sync.Mutex
	unread int64
}

func newWatcher(c *client.Client, out io.Writer) *watcher {
	return &watcher{c: c, out: out, unread: -1}
}

// run polls until ctx is cancelled or the session expires.
func (w *watcher) run(ctx context.Context, bannerEvery, listEvery time.Duration) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	guard := func(task poller.Task) poller.Task {
		return func(ctx context.Context) error {
			err := task(ctx)
			if errors.Is(err, apperrors.ErrAuthExpired) {
				cancel(err)
			}
			return err
		}
	}

	banner := poller.New("banner", bannerEvery, guard(w.banner))
	badge := poller.New("unread", listEvery, guard(w.badge))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return banner.Run(gctx) })
	g.Go(func() error { return badge.Run(gctx) })
	err := g.Wait()

	if cause := context.Cause(ctx); errors.Is(cause, apperrors.ErrAuthExpired) {
		return cause
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// banner prints each notification the banner has not shown yet, then marks
// it shown so no other view repeats it.
func (w *watcher) banner(ctx context.Context) error {
	list, err := w.c.UnreadNotifications(ctx)
	if err != nil {
		return err
	}
	for i := len(list.Notifications) - 1; i >= 0; i-- {
		n := list.Notifications[i]
		w.print("%s  %s acquired %q\n", n.AcquiredAt.Local().Format(time.TimeOnly), userLabel(n), n.CouponIssue.Coupon.Title)
		if err := w.c.MarkBannerShown(ctx, n.ID.Hex()); err != nil {
			return err
		}
	}
	return nil
}

func (w *watcher) badge(ctx context.Context) error {
	list, err := w.c.Notifications(ctx, 1)
	if err != nil {
		return err
	}
	w.mu.Lock()
	changed := w.unread != list.UnreadCount
	w.unread = list.UnreadCount
	w.mu.Unlock()
	if changed {
		w.print("%d unread notifications\n", list.UnreadCount)
	}
	return nil
}

func (w *watcher) print(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, format, args...)
}
