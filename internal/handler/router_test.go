package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"coupon-scheduler/internal/model"
	"coupon-scheduler/internal/repository/memory"
	"coupon-scheduler/internal/service"

	"github.com/gin-gonic/gin"
)

type envelope struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

type testAPI struct {
	t      *testing.T
	svc    Services
	router *gin.Engine
	token  string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatal(err)
	}
	store := memory.NewStore()
	svc := Services{
		Auth:          service.NewAuthService(store.Operators(), "test-secret", time.Hour),
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

	api := &testAPI{t: t, svc: svc, router: SetupRouter(svc, []string{"http://localhost:3000"})}
	api.login("owner@example.com", "s3cret-pass")
	return api
}

func (a *testAPI) login(email, password string) {
	a.t.Helper()
	var login model.LoginResponse
	a.token = ""
	a.do(http.MethodPost, "/api/auth/login", model.LoginRequest{Email: email, Password: password}, http.StatusOK, &login)
	a.token = login.Token
}

// otherShop bootstraps a second shop and returns a client logged in to it
// against the same router.
func (a *testAPI) otherShop(slug string) *testAPI {
	a.t.Helper()
	email := "owner@" + slug + ".example.com"
	err := a.svc.Auth.Bootstrap(context.Background(), service.BootstrapParams{
		ShopName: "Shop " + slug,
		ShopSlug: slug,
		Name:     "Owner " + slug,
		Email:    email,
		Password: "s3cret-pass",
	})
	if err != nil {
		a.t.Fatal(err)
	}
	other := &testAPI{t: a.t, svc: a.svc, router: a.router}
	other.login(email, "s3cret-pass")
	return other
}

// call performs a request and returns the status and decoded envelope.
func (a *testAPI) call(method, path string, body any) (int, envelope) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

// do performs a request, requires the status and decodes data into out.
func (a *testAPI) do(method, path string, body any, want int, out any) envelope {
	a.t.Helper()
	code, env := a.call(method, path, body)
	if code != want {
		a.t.Fatalf("%s %s = %d, want %d (%s: %v)", method, path, code, want, env.Message, env.Errors)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			a.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return env
}

func (a *testAPI) createCoupon(title string) model.Coupon {
	var c model.Coupon
	a.do(http.MethodPost, "/api/coupons", model.CouponRequest{Title: title, Description: "test"}, http.StatusCreated, &c)
	return c
}

func (a *testAPI) issueNow(couponID string, minutes int, capacity *int) model.Issue {
	var issue model.Issue
	a.do(http.MethodPost, "/api/coupons/"+couponID+"/issue-now",
		model.IssueNowRequest{DurationMinutes: minutes, MaxAcquisitions: capacity}, http.StatusCreated, &issue)
	return issue
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health = %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t)
	api.token = ""
	if code, _ := api.call(http.MethodGet, "/api/coupons", nil); code != http.StatusUnauthorized {
		t.Errorf("no token = %d", code)
	}
	if code, _ := api.call(http.MethodPost, "/api/auth/login", model.LoginRequest{Email: "owner@example.com", Password: "nope"}); code != http.StatusUnauthorized {
		t.Errorf("bad password = %d", code)
	}
}

func TestCreateCoupon_Validation(t *testing.T) {
	api := newTestAPI(t)
	code, env := api.call(http.MethodPost, "/api/coupons", model.CouponRequest{ImageURL: "not a url"})
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", code)
	}
	for _, f := range []string{"title", "description", "image_url"} {
		if len(env.Errors[f]) == 0 {
			t.Errorf("missing error for %s: %v", f, env.Errors)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/coupons", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+api.token)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body = %d", w.Code)
	}
}

func TestCreateSchedule_ReportsAllFieldErrors(t *testing.T) {
	api := newTestAPI(t)
	coupon := api.createCoupon("Free Coffee")

	code, env := api.call(http.MethodPost, "/api/coupons/schedules", model.ScheduleRequest{
		CouponID:  coupon.ID.Hex(),
		Name:      "",
		DayType:   "custom",
		StartTime: "12:00",
		EndTime:   "10:00",
		ValidFrom: "2024-06-03",
	})
	if code != http.StatusUnprocessableEntity || env.Status != "error" {
		t.Fatalf("status = %d %s", code, env.Status)
	}
	for _, f := range []string{"schedule_name", "custom_days", "time_window"} {
		if len(env.Errors[f]) != 1 {
			t.Errorf("errors[%s] = %v", f, env.Errors[f])
		}
	}
}

func TestScheduleLifecycle(t *testing.T) {
	api := newTestAPI(t)
	coupon := api.createCoupon("Free Coffee")

	var sched model.ScheduleResponse
	api.do(http.MethodPost, "/api/coupons/schedules", model.ScheduleRequest{
		CouponID:  coupon.ID.Hex(),
		Name:      "Weekday lunch",
		DayType:   "weekdays",
		StartTime: "11:30",
		EndTime:   "13:00",
		ValidFrom: "2024-06-03",
	}, http.StatusCreated, &sched)

	var windows []model.WindowPreview
	api.do(http.MethodGet, "/api/coupons/schedules/"+sched.ID.Hex()+"/preview?from=2024-06-03&to=2024-06-09", nil, http.StatusOK, &windows)
	if len(windows) != 5 {
		t.Errorf("preview = %d windows, want 5", len(windows))
	}

	var toggled model.ScheduleResponse
	api.do(http.MethodPatch, "/api/coupons/schedules/"+sched.ID.Hex()+"/toggle-status", nil, http.StatusOK, &toggled)
	if toggled.IsActive {
		t.Error("toggle did not pause the schedule")
	}

	api.do(http.MethodDelete, "/api/coupons/schedules/"+sched.ID.Hex(), nil, http.StatusOK, nil)
	api.do(http.MethodDelete, "/api/coupons/schedules/"+sched.ID.Hex(), nil, http.StatusNotFound, nil)
	api.do(http.MethodDelete, "/api/coupons/schedules/not-an-id", nil, http.StatusBadRequest, nil)
}

// Many concurrent users race for a capped issue over HTTP.
func TestAcquire_FlashSaleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	coupon := api.createCoupon("Flash Sale")
	max := 5
	issue := api.issueNow(coupon.ID.Hex(), 60, &max)

	const concurrentRequests = 50
	var (
		created, conflict, other int64
		wg                       sync.WaitGroup
	)
	for i := 0; i < concurrentRequests; i++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()
			code, _ := api.call(http.MethodPost, "/api/coupons/issues/"+issue.ID.Hex()+"/acquire",
				model.AcquireRequest{UserID: fmt.Sprintf("user_%d", userID)})
			switch code {
			case http.StatusCreated:
				atomic.AddInt64(&created, 1)
			case http.StatusConflict:
				atomic.AddInt64(&conflict, 1)
			default:
				atomic.AddInt64(&other, 1)
			}
		}(i)
	}
	wg.Wait()

	if created != 5 || conflict != 45 || other != 0 {
		t.Errorf("created=%d conflict=%d other=%d, want 5/45/0", created, conflict, other)
	}

	var view struct {
		CurrentAcquisitions int    `json:"current_acquisitions"`
		Status              string `json:"status"`
	}
	api.do(http.MethodGet, "/api/coupons/issues/"+issue.ID.Hex(), nil, http.StatusOK, &view)
	if view.CurrentAcquisitions != 5 || view.Status != "full" {
		t.Errorf("view = %+v", view)
	}
}

// The same user retrying concurrently gets one acquisition.
func TestAcquire_DoubleDipOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	coupon := api.createCoupon("Double Dip")
	issue := api.issueNow(coupon.ID.Hex(), 60, nil)

	const attempts = 10
	var (
		created, repeated int64
		wg                sync.WaitGroup
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, _ := api.call(http.MethodPost, "/api/coupons/issues/"+issue.ID.Hex()+"/acquire",
				model.AcquireRequest{UserID: "same_user"})
			switch code {
			case http.StatusCreated:
				atomic.AddInt64(&created, 1)
			case http.StatusOK:
				atomic.AddInt64(&repeated, 1)
			}
		}()
	}
	wg.Wait()

	if created != 1 || repeated != attempts-1 {
		t.Errorf("created=%d repeated=%d", created, repeated)
	}

	var acquisitions []model.AcquisitionResponse
	api.do(http.MethodGet, "/api/coupons/issues/"+issue.ID.Hex()+"/acquisitions", nil, http.StatusOK, &acquisitions)
	if len(acquisitions) != 1 || !acquisitions[0].IsUsable {
		t.Errorf("acquisitions = %+v", acquisitions)
	}
}

func TestIssueNow_StopAndNotifications(t *testing.T) {
	api := newTestAPI(t)
	coupon := api.createCoupon("Free Coffee")

	code, env := api.call(http.MethodPost, "/api/coupons/"+coupon.ID.Hex()+"/issue-now", model.IssueNowRequest{DurationMinutes: 0})
	if code != http.StatusUnprocessableEntity || len(env.Errors["duration_minutes"]) == 0 {
		t.Fatalf("zero duration = %d %v", code, env.Errors)
	}

	first := api.issueNow(coupon.ID.Hex(), 60, nil)
	second := api.issueNow(coupon.ID.Hex(), 30, nil)

	var active []struct {
		ID string `json:"id"`
	}
	api.do(http.MethodGet, "/api/coupons/active-issues", nil, http.StatusOK, &active)
	if len(active) != 1 || active[0].ID != second.ID.Hex() {
		t.Errorf("active = %+v, want only %s", active, second.ID.Hex())
	}

	code, _ = api.call(http.MethodPost, "/api/coupons/issues/"+first.ID.Hex()+"/acquire", model.AcquireRequest{UserID: "u1"})
	if code != http.StatusConflict {
		t.Errorf("acquire on stopped issue = %d", code)
	}

	api.do(http.MethodPost, "/api/coupons/issues/"+second.ID.Hex()+"/acquire", model.AcquireRequest{UserID: "u1", UserName: "Taro"}, http.StatusCreated, nil)

	var unread model.NotificationList
	api.do(http.MethodGet, "/api/coupons/unread-notifications", nil, http.StatusOK, &unread)
	if len(unread.Notifications) != 1 || unread.UnreadCount != 1 {
		t.Fatalf("unread = %+v", unread)
	}
	nid := unread.Notifications[0].ID.Hex()
	api.do(http.MethodPost, "/api/coupons/acquisition-notifications/"+nid+"/banner-shown", nil, http.StatusOK, nil)
	api.do(http.MethodGet, "/api/coupons/unread-notifications", nil, http.StatusOK, &unread)
	if len(unread.Notifications) != 0 || unread.UnreadCount != 1 {
		t.Errorf("after banner = %+v", unread)
	}
	api.do(http.MethodPost, "/api/coupons/acquisition-notifications/read-all", nil, http.StatusOK, nil)

	var stats model.DashboardStats
	api.do(http.MethodGet, "/api/dashboard/stats", nil, http.StatusOK, &stats)
	if stats.UnreadNotifications != 0 || stats.ActiveIssuesCount != 1 || stats.AcquisitionsToday != 1 {
		t.Errorf("stats = %+v", stats)
	}

	var stopped model.Issue
	api.do(http.MethodPost, "/api/coupons/issues/"+second.ID.Hex()+"/stop", nil, http.StatusOK, &stopped)
	if stopped.StoppedAt == nil {
		t.Error("stop did not record stopped_at")
	}
}

func TestIssueRoutes_ScopedToShop(t *testing.T) {
	shopA := newTestAPI(t)
	shopB := shopA.otherShop("b")

	coupon := shopA.createCoupon("Free Coffee")
	one := 1
	issue := shopA.issueNow(coupon.ID.Hex(), 60, &one)
	path := "/api/coupons/issues/" + issue.ID.Hex()

	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodPost, path + "/acquire", model.AcquireRequest{UserID: "intruder"}},
		{http.MethodPost, path + "/stop", nil},
		{http.MethodGet, path, nil},
		{http.MethodGet, path + "/acquisitions", nil},
	} {
		if code, env := shopB.call(tc.method, tc.path, tc.body); code != http.StatusNotFound {
			t.Errorf("other shop %s %s = %d (%s), want 404", tc.method, tc.path, code, env.Message)
		}
	}

	var got model.Issue
	shopA.do(http.MethodGet, path, nil, http.StatusOK, &got)
	if got.CurrentAcquisitions != 0 || got.StoppedAt != nil {
		t.Fatalf("issue touched by other shop: %+v", got)
	}

	shopA.do(http.MethodPost, path+"/acquire", model.AcquireRequest{UserID: "u1"}, http.StatusCreated, nil)

	var feed model.NotificationList
	shopB.do(http.MethodGet, "/api/coupons/unread-notifications", nil, http.StatusOK, &feed)
	if feed.UnreadCount != 0 {
		t.Errorf("other shop feed = %+v", feed)
	}
	shopA.do(http.MethodGet, "/api/coupons/unread-notifications", nil, http.StatusOK, &feed)
	if feed.UnreadCount != 1 || len(feed.Notifications) != 1 || feed.Notifications[0].UserID != "u1" {
		t.Errorf("shop feed = %+v", feed)
	}
}
