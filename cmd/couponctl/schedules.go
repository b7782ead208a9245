package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"coupon-scheduler/internal/model"
	"coupon-scheduler/internal/schedule"
	"coupon-scheduler/internal/service"
	"coupon-scheduler/internal/status"
	"coupon-scheduler/pkg/client"
	apperrors "coupon-scheduler/pkg/errors"

	"github.com/urfave/cli/v3"
)

func scheduleFlags(requireCoupon bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "coupon", Usage: "coupon id", Required: requireCoupon},
		&cli.StringFlag{Name: "name"},
		&cli.StringFlag{Name: "days", Value: "daily", Usage: "daily, weekdays, weekends or custom"},
		&cli.StringFlag{Name: "custom", Usage: "comma separated weekdays for custom, 0=Sunday .. 6=Saturday"},
		&cli.StringFlag{Name: "start", Usage: "HH:MM"},
		&cli.StringFlag{Name: "end", Usage: "HH:MM"},
		&cli.IntFlag{Name: "max", Usage: "acquisition cap per window, 0 for unlimited"},
		&cli.StringFlag{Name: "valid-from", Usage: "YYYY-MM-DD"},
		&cli.StringFlag{Name: "valid-until", Usage: "YYYY-MM-DD, empty for open ended"},
		&cli.BoolFlag{Name: "inactive", Usage: "save the schedule switched off"},
	}
}

func scheduleRequest(cmd *cli.Command) (*model.ScheduleRequest, error) {
	days, err := parseDays(cmd.String("custom"))
	if err != nil {
		return nil, err
	}
	active := !cmd.Bool("inactive")
	req := &model.ScheduleRequest{
		CouponID:   cmd.String("coupon"),
		Name:       cmd.String("name"),
		DayType:    cmd.String("days"),
		CustomDays: days,
		StartTime:  cmd.String("start"),
		EndTime:    cmd.String("end"),
		ValidFrom:  cmd.String("valid-from"),
		ValidUntil: cmd.String("valid-until"),
		IsActive:   &active,
	}
	if n := int(cmd.Int("max")); n != 0 {
		req.MaxAcquisitions = &n
	}
	return req, nil
}

func parseDays(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var days []int
	for _, part := range strings.Split(s, ",") {
		d, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			fe := apperrors.FieldErrors{}
			fe.Add(schedule.FieldCustomDays, fmt.Sprintf("%q is not a day number", part))
			return nil, fe.Err()
		}
		days = append(days, d)
	}
	return days, nil
}

func schedulesCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedules",
		Usage: "recurring issuance rules",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "all schedules of the shop",
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					if err := requireLogin(c); err != nil {
						return err
					}
					list, err := c.Schedules(ctx)
					if err != nil {
						return err
					}
					w := newTable(writer(cmd), "ID", "NAME", "COUPON", "DAYS", "TIME", "MAX", "VALID", "ACTIVE", "LAST BATCH")
					for _, s := range list {
						w.row(s.ID.Hex(), s.Name, s.Coupon.Title, s.DayTypeDisplay, s.TimeRangeDisplay,
							capText(s.MaxAcquisitions), validity(s.ValidFrom, s.ValidUntil), s.IsActive, dash(s.LastBatchProcessedDate))
					}
					return w.flush()
				}),
			},
			{
				Name:  "create",
				Usage: "add a schedule",
				Flags: scheduleFlags(true),
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					req, err := scheduleRequest(cmd)
					if err != nil {
						return err
					}
					if err := requireLogin(c); err != nil {
						return err
					}
					s, err := c.CreateSchedule(ctx, req)
					if err != nil {
						return err
					}
					fmt.Fprintf(writer(cmd), "created schedule %s: %s %s\n", s.ID.Hex(), s.DayTypeDisplay, s.TimeRangeDisplay)
					return nil
				}),
			},
			{
				Name:      "update",
				Usage:     "replace a schedule's mutable fields; the day pattern must stay the same",
				ArgsUsage: "<schedule-id>",
				Flags:     scheduleFlags(false),
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					id, err := argID(cmd, "schedule id")
					if err != nil {
						return err
					}
					req, err := scheduleRequest(cmd)
					if err != nil {
						return err
					}
					if err := requireLogin(c); err != nil {
						return err
					}
					s, err := c.UpdateSchedule(ctx, id, req)
					if err != nil {
						return err
					}
					fmt.Fprintf(writer(cmd), "updated schedule %s: %s %s\n", s.ID.Hex(), s.DayTypeDisplay, s.TimeRangeDisplay)
					return nil
				}),
			},
			{
				Name:      "toggle",
				Usage:     "switch a schedule on or off",
				ArgsUsage: "<schedule-id>",
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					id, err := argID(cmd, "schedule id")
					if err != nil {
						return err
					}
					if err := requireLogin(c); err != nil {
						return err
					}
					s, err := c.ToggleSchedule(ctx, id)
					if err != nil {
						return err
					}
					state := "off"
					if s.IsActive {
						state = "on"
					}
					fmt.Fprintf(writer(cmd), "schedule %s is %s\n", s.ID.Hex(), state)
					return nil
				}),
			},
			{
				Name:      "delete",
				Usage:     "remove a schedule; issues it created are kept",
				ArgsUsage: "<schedule-id>",
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					id, err := argID(cmd, "schedule id")
					if err != nil {
						return err
					}
					if err := requireLogin(c); err != nil {
						return err
					}
					if err := c.DeleteSchedule(ctx, id); err != nil {
						return err
					}
					fmt.Fprintf(writer(cmd), "deleted schedule %s\n", id)
					return nil
				}),
			},
			{
				Name:      "preview",
				Usage:     "upcoming windows of a saved schedule",
				ArgsUsage: "<schedule-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "YYYY-MM-DD, default today"},
					&cli.StringFlag{Name: "to", Usage: "YYYY-MM-DD, default two weeks"},
				},
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					id, err := argID(cmd, "schedule id")
					if err != nil {
						return err
					}
					if err := requireLogin(c); err != nil {
						return err
					}
					windows, err := c.PreviewSchedule(ctx, id, cmd.String("from"), cmd.String("to"))
					if err != nil {
						return err
					}
					w := newTable(writer(cmd), "DATE", "START", "END", "MINUTES")
					for _, win := range windows {
						w.row(win.Date, win.StartDateTime.Format(time.DateTime), win.EndDateTime.Format(time.DateTime), win.DurationMinutes)
					}
					return w.flush()
				}),
			},
			{
				Name:  "dry-run",
				Usage: "validate a schedule and list its windows without a server",
				Flags: append(scheduleFlags(false),
					&cli.StringFlag{Name: "from", Usage: "YYYY-MM-DD, default today"},
					&cli.StringFlag{Name: "to", Usage: "YYYY-MM-DD, default two weeks"},
				),
				Action: dryRun,
			},
		},
	}
}

// dryRun validates the schedule exactly as the server would and prints the
// windows it would generate, each projected at the current time.
func dryRun(ctx context.Context, cmd *cli.Command) error {
	req, err := scheduleRequest(cmd)
	if err != nil {
		return err
	}
	if req.Name == "" {
		req.Name = "dry-run"
	}
	if req.ValidFrom == "" {
		req.ValidFrom = cmd.String("from")
	}

	loc, err := time.LoadLocation(cmd.String("timezone"))
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	now := time.Now().In(loc)
	if req.ValidFrom == "" {
		req.ValidFrom = schedule.DateIn(now, loc).String()
	}

	def, err := service.ParseRequest(req)
	if err != nil {
		return err
	}
	from, to, err := previewRange(cmd.String("from"), cmd.String("to"), schedule.DateIn(now, loc))
	if err != nil {
		return err
	}

	fmt.Fprintf(writer(cmd), "%s %s, %d minutes per window\n",
		schedule.DayTypeDisplay(def.Pattern), schedule.TimeRangeDisplay(def.Start, def.End), def.DurationMinutes())
	w := newTable(writer(cmd), "DATE", "DAY", "START", "END", "STATUS AT NOW")
	for win := range schedule.Windows(def, from, to, loc) {
		issue := &model.Issue{StartDateTime: win.Start, EndDateTime: win.End, MaxAcquisitions: def.MaxAcquisitions}
		w.row(win.Date, win.Date.Weekday().String()[:3], win.Start.Format("15:04"), win.End.Format("15:04"), status.Project(issue, now).Status)
	}
	return w.flush()
}

func previewRange(fromArg, toArg string, today schedule.Date) (schedule.Date, schedule.Date, error) {
	fe := apperrors.FieldErrors{}
	from, to := today, today.AddDays(13)
	var err error
	if fromArg != "" {
		if from, err = schedule.ParseDate(fromArg); err != nil {
			fe.Add("from", "from must be a YYYY-MM-DD date")
		}
	}
	if toArg != "" {
		if to, err = schedule.ParseDate(toArg); err != nil {
			fe.Add("to", "to must be a YYYY-MM-DD date")
		}
	} else if fromArg != "" && !fe.Has("from") {
		to = from.AddDays(13)
	}
	if !fe.Has("from") && !fe.Has("to") && to.Before(from) {
		fe.Add("to", "to must not be before from")
	}
	return from, to, fe.Err()
}

func capText(n *int) string {
	if n == nil {
		return "unlimited"
	}
	return strconv.Itoa(*n)
}

func validity(from, until string) string {
	if until == "" {
		return from + " .."
	}
	return from + " .. " + until
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
