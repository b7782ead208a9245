package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"coupon-scheduler/internal/handler"
	"coupon-scheduler/internal/model"
	"coupon-scheduler/internal/repository/memory"
	"coupon-scheduler/internal/service"
	"coupon-scheduler/pkg/client"

	"github.com/gin-gonic/gin"
)

type harness struct {
	server  *httptest.Server
	session string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatal(err)
	}

	store := memory.NewStore()
	svc := handler.Services{
		Auth:          service.NewAuthService(store.Operators(), "cli-secret", time.Hour),
		Coupons:       service.NewCouponService(store.Coupons(), store.Schedules(), store.Issues()),
		Issues:        service.NewIssueService(store, store.Coupons(), store.Issues(), store.Acquisitions(), store.Notifications(), nil),
		Schedules:     service.NewScheduleService(store.Schedules(), store.Coupons(), loc),
		Notifications: service.NewNotificationService(store.Notifications()),
		Dashboard:     service.NewDashboardService(store.Coupons(), store.Schedules(), store.Issues(), store.Acquisitions(), store.Notifications(), loc),
	}
	err = svc.Auth.Bootstrap(context.Background(), service.BootstrapParams{
		ShopName: "Cafe",
		ShopSlug: "cafe",
		Name:     "Owner",
		Email:    "owner@example.com",
		Password: "s3cret-pass",
	})
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(handler.SetupRouter(svc, nil))
	t.Cleanup(srv.Close)
	return &harness{server: srv, session: filepath.Join(t.TempDir(), "session.json")}
}

// run executes one couponctl invocation and returns what it printed.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	argv := append([]string{"couponctl", "--server", h.server.URL, "--session", h.session}, args...)
	err := newApp(&buf).Run(context.Background(), argv)
	return buf.String(), err
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, args...)
	if err != nil {
		t.Fatalf("%v: %s", args, describe(err))
	}
	return out
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	h.mustRun(t, "login", "--email", "owner@example.com", "--password", "s3cret-pass")
}

func TestLoginPersistsSession(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun(t, "login", "--email", "owner@example.com", "--password", "s3cret-pass")
	if !strings.Contains(out, "logged in as Owner (Cafe)") {
		t.Errorf("login output = %q", out)
	}
	if _, err := os.Stat(h.session); err != nil {
		t.Fatalf("session file: %v", err)
	}

	out = h.mustRun(t, "whoami")
	if !strings.Contains(out, "owner@example.com") || !strings.Contains(out, "shop: Cafe (cafe)") {
		t.Errorf("whoami output = %q", out)
	}

	h.mustRun(t, "logout")
	if _, err := os.Stat(h.session); !os.IsNotExist(err) {
		t.Errorf("session file still present after logout: %v", err)
	}
	if _, err := h.run(t, "whoami"); err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Errorf("whoami after logout err = %v", err)
	}
}

func TestRejectedTokenRemovesSession(t *testing.T) {
	h := newHarness(t)
	forged := `{"token":"forged","expires_at":"` + time.Now().Add(time.Hour).Format(time.RFC3339) + `"}`
	if err := os.WriteFile(h.session, []byte(forged), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := h.run(t, "coupons", "list")
	if err == nil || describe(err) != "session expired, run: couponctl login" {
		t.Errorf("err = %v", err)
	}
	if _, err := os.Stat(h.session); !os.IsNotExist(err) {
		t.Errorf("session file kept after 401: %v", err)
	}
}

func TestCouponIssueFlow(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	out := h.mustRun(t, "coupons", "create", "--title", "Free Coffee", "--description", "One drip")
	fields := strings.Fields(out)
	if len(fields) < 3 || fields[0] != "created" {
		t.Fatalf("create output = %q", out)
	}
	couponID := fields[2]

	if _, err := h.run(t, "issues", "now", "--duration", "45", couponID); err == nil {
		t.Error("non-preset duration accepted")
	}
	out = h.mustRun(t, "issues", "now", "--duration", "30", "--max", "2", couponID)
	fields = strings.Fields(out)
	if len(fields) < 2 || fields[0] != "issued" {
		t.Fatalf("issue-now output = %q", out)
	}
	issueID := fields[1]

	out = h.mustRun(t, "issues", "acquire", "--user", "u1", "--name", "Taro", issueID)
	if !strings.HasPrefix(out, "acquired by u1") {
		t.Errorf("acquire output = %q", out)
	}
	out = h.mustRun(t, "issues", "acquire", "--user", "u1", issueID)
	if !strings.Contains(out, "already holds") {
		t.Errorf("repeat acquire output = %q", out)
	}

	out = h.mustRun(t, "issues", "active")
	if !strings.Contains(out, issueID) || !strings.Contains(out, "active") {
		t.Errorf("active output = %q", out)
	}

	out = h.mustRun(t, "coupons", "list")
	if !strings.Contains(out, "Free Coffee") {
		t.Errorf("coupons output = %q", out)
	}

	h.mustRun(t, "issues", "stop", issueID)
	out = h.mustRun(t, "issues", "show", issueID)
	if !strings.Contains(out, "cancelled") || !strings.Contains(out, "Taro") {
		t.Errorf("show output = %q", out)
	}
}

func TestScheduleCommands(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	out := h.mustRun(t, "coupons", "create", "--title", "Lunch Set", "--description", "10% off")
	couponID := strings.Fields(out)[2]

	_, err := h.run(t, "schedules", "create", "--coupon", couponID, "--name", "Lunch",
		"--days", "weekdays", "--start", "13:00", "--end", "12:00", "--valid-from", "2024-06-03")
	if err == nil || !strings.Contains(describe(err), "time_window:") {
		t.Fatalf("invalid schedule err = %v", err)
	}

	out = h.mustRun(t, "schedules", "create", "--coupon", couponID, "--name", "Lunch",
		"--days", "weekdays", "--start", "11:30", "--end", "13:00", "--valid-from", "2024-06-03", "--max", "50")
	if !strings.Contains(out, "Weekdays (Mon-Fri) 11:30 - 13:00") {
		t.Fatalf("create output = %q", out)
	}
	scheduleID := strings.TrimSuffix(strings.Fields(out)[2], ":")

	out = h.mustRun(t, "schedules", "preview", "--from", "2024-06-03", "--to", "2024-06-09", scheduleID)
	if got := strings.Count(out, "2024-06-0"); got != 5*3 {
		t.Errorf("preview lines mention %d dates, want 15:\n%s", got, out)
	}

	out = h.mustRun(t, "schedules", "toggle", scheduleID)
	if !strings.HasSuffix(strings.TrimSpace(out), "is off") {
		t.Errorf("toggle output = %q", out)
	}
	out = h.mustRun(t, "schedules", "list")
	if !strings.Contains(out, "Lunch") || !strings.Contains(out, "false") {
		t.Errorf("list output = %q", out)
	}

	h.mustRun(t, "schedules", "delete", scheduleID)
	if _, err := h.run(t, "schedules", "delete", scheduleID); err == nil {
		t.Error("second delete succeeded")
	}
}

func TestDryRun(t *testing.T) {
	var buf bytes.Buffer
	err := newApp(&buf).Run(context.Background(), []string{
		"couponctl", "--timezone", "Asia/Tokyo", "schedules", "dry-run",
		"--days", "custom", "--custom", "1, 3",
		"--start", "09:00", "--end", "10:30",
		"--from", "2024-06-02", "--to", "2024-06-15",
	})
	if err != nil {
		t.Fatal(describe(err))
	}
	out := buf.String()
	if !strings.Contains(out, "Mon, Wed 09:00 - 10:30, 90 minutes per window") {
		t.Errorf("header = %q", out)
	}
	// Windows from 2024 are all over by now.
	if got := strings.Count(out, "expired"); got != 4 {
		t.Errorf("windows = %d, want 4:\n%s", got, out)
	}
}

func TestDryRun_FieldErrors(t *testing.T) {
	err := newApp(&bytes.Buffer{}).Run(context.Background(), []string{
		"couponctl", "schedules", "dry-run", "--days", "custom", "--custom", "1,x",
	})
	if err == nil || !strings.Contains(describe(err), "custom_days:") {
		t.Errorf("err = %v", err)
	}

	err = newApp(&bytes.Buffer{}).Run(context.Background(), []string{
		"couponctl", "schedules", "dry-run", "--days", "fortnightly", "--start", "25:00", "--end", "10:00",
	})
	msg := describe(err)
	if !strings.Contains(msg, "day_type:") || !strings.Contains(msg, "start_time:") || strings.Contains(msg, "time_window:") {
		t.Errorf("describe = %q", msg)
	}
}

func TestIssueNowRequest(t *testing.T) {
	req, err := issueNowRequest(60, 0)
	if err != nil || req.DurationMinutes != 60 || req.MaxAcquisitions != nil {
		t.Errorf("60/0 = %+v, %v", req, err)
	}
	req, err = issueNowRequest(1440, 10)
	if err != nil || req.MaxAcquisitions == nil || *req.MaxAcquisitions != 10 {
		t.Errorf("1440/10 = %+v, %v", req, err)
	}
	for _, d := range []int{0, 45, 10080} {
		if _, err := issueNowRequest(d, 0); err == nil {
			t.Errorf("duration %d accepted", d)
		}
	}
	if _, err := issueNowRequest(60, -1); err == nil {
		t.Error("negative cap accepted")
	}
}

func TestWatcher(t *testing.T) {
	h := newHarness(t)
	c := client.New(h.server.URL, client.NewSession())
	ctx := context.Background()
	if _, err := c.Login(ctx, "owner@example.com", "s3cret-pass"); err != nil {
		t.Fatal(err)
	}
	coupon, err := c.CreateCoupon(ctx, &model.CouponRequest{Title: "Free Coffee", Description: "One drip"})
	if err != nil {
		t.Fatal(err)
	}
	issue, err := c.IssueNow(ctx, coupon.ID.Hex(), &model.IssueNowRequest{DurationMinutes: 60})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Acquire(ctx, issue.ID.Hex(), &model.AcquireRequest{UserID: "u1", UserName: "Taro"}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	w := newWatcher(c, &buf)
	if err := w.banner(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `Taro acquired "Free Coffee"`) {
		t.Errorf("banner output = %q", buf.String())
	}
	buf.Reset()
	if err := w.banner(ctx); err != nil || buf.Len() != 0 {
		t.Errorf("banner repeated: %q, %v", buf.String(), err)
	}

	if err := w.badge(ctx); err != nil || !strings.Contains(buf.String(), "1 unread notifications") {
		t.Errorf("badge output = %q, %v", buf.String(), err)
	}
	buf.Reset()
	if err := w.badge(ctx); err != nil || buf.Len() != 0 {
		t.Errorf("unchanged badge printed %q, %v", buf.String(), err)
	}
}

func TestWatcher_StopsWhenSessionExpires(t *testing.T) {
	h := newHarness(t)
	session := client.NewSession()
	session.Restore(client.SessionData{Token: "forged", ExpiresAt: time.Now().Add(time.Hour)})
	w := newWatcher(client.New(h.server.URL, session), &bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := w.run(ctx, time.Hour, time.Hour)
	if err == nil || describe(err) != "session expired, run: couponctl login" {
		t.Errorf("run err = %v", err)
	}
}
