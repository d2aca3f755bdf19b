package cmd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"prms/internal/pid"
	"prms/internal/pid/export"
	"prms/internal/pid/handler"
)

// apiError is the server's error envelope.
type apiError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// apiClient calls the /api/v1 identifier endpoints.
type apiClient struct {
	http *resty.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/api/v1").
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Only idempotent reads are retried; a lost POST response
			// would otherwise burn a sequence number.
			if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
				return false
			}
			return err != nil || r.StatusCode() == http.StatusServiceUnavailable
		}).
		SetHeader("Accept", "application/json")
	return &apiClient{http: client}
}

func (c *apiClient) Issue(ctx context.Context) (export.Row, error) {
	var out handler.IssueResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr).
		Post("/pids")
	if err := check(resp, err, &apiErr); err != nil {
		return export.Row{}, err
	}
	return export.Row{
		PID:        out.PID,
		Components: out.Components,
		QRPayload:  out.QRPayload,
		IssuedAt:   time.Now(),
	}, nil
}

func (c *apiClient) Validate(ctx context.Context, candidate string, strict bool) (handler.ValidationResponse, error) {
	var out handler.ValidationResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("pid", candidate).
		SetQueryParam("strict", strconv.FormatBool(strict)).
		SetResult(&out).
		SetError(&apiErr).
		Get("/pids/{pid}/validation")
	if err := check(resp, err, &apiErr); err != nil {
		return handler.ValidationResponse{}, err
	}
	return out, nil
}

func (c *apiClient) Parse(ctx context.Context, candidate string) (pid.Components, error) {
	var out pid.Components
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("pid", candidate).
		SetResult(&out).
		SetError(&apiErr).
		Get("/pids/{pid}")
	if err := check(resp, err, &apiErr); err != nil {
		return pid.Components{}, err
	}
	return out, nil
}

// QRPayload is derived locally once the server has accepted the identifier;
// the payload layout does not depend on server state.
func (c *apiClient) QRPayload(ctx context.Context, candidate string) (string, error) {
	comps, err := c.Parse(ctx, candidate)
	if err != nil {
		return "", err
	}
	return comps.SiteCode + ":PID:" + candidate, nil
}

// QRImage fetches the server-rendered PNG.
func (c *apiClient) QRImage(ctx context.Context, candidate string, size int) ([]byte, error) {
	var apiErr apiError
	req := c.http.R().
		SetContext(ctx).
		SetPathParam("pid", candidate).
		SetError(&apiErr)
	if size > 0 {
		req.SetQueryParam("size", strconv.Itoa(size))
	}
	resp, err := req.Get("/pids/{pid}/qr")
	if err := check(resp, err, &apiErr); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func check(resp *resty.Response, err error, apiErr *apiError) error {
	if err != nil {
		var target string
		if resp != nil && resp.Request != nil {
			target = redact(resp.Request.URL)
		}
		return fmt.Errorf("request %s: %w", target, err)
	}
	if !resp.IsError() {
		return nil
	}
	if resp.StatusCode() == http.StatusUnprocessableEntity {
		return rejection(apiErr.Description)
	}
	if apiErr.Error != "" {
		return fmt.Errorf("server returned %d %s: %s", resp.StatusCode(), apiErr.Error, apiErr.Description)
	}
	return fmt.Errorf("server returned %s", resp.Status())
}

func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.User = nil
	return u.String()
}
