package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"coupon-scheduler/internal/model"
	"coupon-scheduler/internal/status"
)

// Login signs in and populates the session.
func (c *Client) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, &model.LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	c.session.Populate(&resp)
	return &resp, nil
}

// Logout clears the session whether or not the server could be reached.
func (c *Client) Logout(ctx context.Context) error {
	defer c.session.Clear()
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

func (c *Client) Me(ctx context.Context) (*model.OperatorProfile, error) {
	return call[model.OperatorProfile](ctx, c, http.MethodGet, "/auth/me", nil, nil)
}

func (c *Client) Shop(ctx context.Context) (*model.Shop, error) {
	return call[model.Shop](ctx, c, http.MethodGet, "/shop", nil, nil)
}

func (c *Client) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	return call[model.DashboardStats](ctx, c, http.MethodGet, "/dashboard/stats", nil, nil)
}

func (c *Client) Activities(ctx context.Context, limit int) ([]model.DashboardActivity, error) {
	return list[model.DashboardActivity](ctx, c, "/dashboard/activities", limitQuery(limit))
}

// Coupons

func (c *Client) Coupons(ctx context.Context) ([]model.CouponSummary, error) {
	return list[model.CouponSummary](ctx, c, "/coupons", nil)
}

func (c *Client) CreateCoupon(ctx context.Context, req *model.CouponRequest) (*model.Coupon, error) {
	return call[model.Coupon](ctx, c, http.MethodPost, "/coupons", nil, req)
}

func (c *Client) UpdateCoupon(ctx context.Context, id string, req *model.CouponRequest) (*model.Coupon, error) {
	return call[model.Coupon](ctx, c, http.MethodPut, "/coupons/"+url.PathEscape(id), nil, req)
}

// Issues

func (c *Client) ActiveIssues(ctx context.Context) ([]status.IssueView, error) {
	return list[status.IssueView](ctx, c, "/coupons/active-issues", nil)
}

// IssueNow starts a manual issue, stopping any live issue of the coupon.
func (c *Client) IssueNow(ctx context.Context, couponID string, req *model.IssueNowRequest) (*model.Issue, error) {
	return call[model.Issue](ctx, c, http.MethodPost, "/coupons/"+url.PathEscape(couponID)+"/issue-now", nil, req)
}

func (c *Client) Issue(ctx context.Context, id string) (*status.IssueView, error) {
	return call[status.IssueView](ctx, c, http.MethodGet, "/coupons/issues/"+url.PathEscape(id), nil, nil)
}

func (c *Client) StopIssue(ctx context.Context, id string) (*model.Issue, error) {
	return call[model.Issue](ctx, c, http.MethodPost, "/coupons/issues/"+url.PathEscape(id)+"/stop", nil, nil)
}

// Acquire takes one slot for a user. Created is false when the user already
// held the acquisition.
func (c *Client) Acquire(ctx context.Context, issueID string, req *model.AcquireRequest) (*model.AcquisitionResponse, error) {
	return call[model.AcquisitionResponse](ctx, c, http.MethodPost, "/coupons/issues/"+url.PathEscape(issueID)+"/acquire", nil, req)
}

func (c *Client) IssueAcquisitions(ctx context.Context, issueID string) ([]model.AcquisitionResponse, error) {
	return list[model.AcquisitionResponse](ctx, c, "/coupons/issues/"+url.PathEscape(issueID)+"/acquisitions", nil)
}

// Schedules

func (c *Client) Schedules(ctx context.Context) ([]model.ScheduleResponse, error) {
	return list[model.ScheduleResponse](ctx, c, "/coupons/schedules", nil)
}

func (c *Client) CreateSchedule(ctx context.Context, req *model.ScheduleRequest) (*model.ScheduleResponse, error) {
	return call[model.ScheduleResponse](ctx, c, http.MethodPost, "/coupons/schedules", nil, req)
}

func (c *Client) UpdateSchedule(ctx context.Context, id string, req *model.ScheduleRequest) (*model.ScheduleResponse, error) {
	return call[model.ScheduleResponse](ctx, c, http.MethodPut, "/coupons/schedules/"+url.PathEscape(id), nil, req)
}

func (c *Client) DeleteSchedule(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/coupons/schedules/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ToggleSchedule(ctx context.Context, id string) (*model.ScheduleResponse, error) {
	return call[model.ScheduleResponse](ctx, c, http.MethodPatch, "/coupons/schedules/"+url.PathEscape(id)+"/toggle-status", nil, nil)
}

// PreviewSchedule lists the windows between from and to (YYYY-MM-DD). Empty
// bounds use the server defaults.
func (c *Client) PreviewSchedule(ctx context.Context, id, from, to string) ([]model.WindowPreview, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	return list[model.WindowPreview](ctx, c, "/coupons/schedules/"+url.PathEscape(id)+"/preview", q)
}

// Notifications

func (c *Client) Notifications(ctx context.Context, limit int) (*model.NotificationList, error) {
	return call[model.NotificationList](ctx, c, http.MethodGet, "/coupons/acquisition-notifications", limitQuery(limit), nil)
}

// UnreadNotifications returns what the banner has not shown yet.
func (c *Client) UnreadNotifications(ctx context.Context) (*model.NotificationList, error) {
	return call[model.NotificationList](ctx, c, http.MethodGet, "/coupons/unread-notifications", nil, nil)
}

func (c *Client) MarkRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/coupons/acquisition-notifications/"+url.PathEscape(id)+"/read", nil, nil, nil)
}

func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/coupons/acquisition-notifications/read-all", nil, nil, nil)
}

func (c *Client) MarkBannerShown(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/coupons/acquisition-notifications/"+url.PathEscape(id)+"/banner-shown", nil, nil, nil)
}

func call[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (*T, error) {
	var out T
	if err := c.do(ctx, method, path, query, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func list[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	var out []T
	if err := c.get(ctx, path, query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func limitQuery(limit int) url.Values {
	if limit <= 0 {
		return nil
	}
	return url.Values{"limit": {strconv.Itoa(limit)}}
}
