package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go-elms/internal/config"
	"go-elms/internal/shared/apperror"
	"go-elms/internal/shared/contextutil"
	"go-elms/internal/shared/metrics"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Client talks to the external leave API. Calls are never retried here; a
// run of transport failures opens the breaker and later calls fail fast with
// ErrNetworkFailure until it half-opens again.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Leave
	logger  *zap.Logger
}

func New(cfg config.APIConfig, m *metrics.Leave, logger ...*zap.Logger) (*Client, error) {
	l := zap.L().Named("apiclient")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("apiclient")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("apiclient: invalid base url %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 3
	}

	st := gobreaker.Settings{
		Name:    "leave-api",
		Timeout: cfg.BreakerOpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return !countsAsFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Client{
		baseURL: base,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(st),
		metrics: m,
		logger:  l,
	}, nil
}

func (c *Client) FetchLeaveBalance(ctx context.Context, employeeID string, year int) (BalanceRecord, error) {
	q := url.Values{}
	q.Set("employeeId", employeeID)
	q.Set("year", strconv.Itoa(year))

	var out BalanceRecord
	err := c.do(ctx, "fetch_balance", http.MethodGet, "/api/leave-balances/my-balance", q, nil, &out)
	return out, err
}

func (c *Client) FetchRequests(ctx context.Context, employeeIDCode string) ([]LeaveRequestRecord, error) {
	q := url.Values{}
	q.Set("employeeIdCode", employeeIDCode)

	var out []LeaveRequestRecord
	err := c.do(ctx, "fetch_requests", http.MethodGet, "/api/leave-requests/my-requests", q, nil, &out)
	return out, err
}

// FetchAllRequests is the admin listing across employees.
func (c *Client) FetchAllRequests(ctx context.Context) ([]LeaveRequestRecord, error) {
	var out []LeaveRequestRecord
	err := c.do(ctx, "fetch_all_requests", http.MethodGet, "/api/leave-requests", nil, nil, &out)
	return out, err
}

func (c *Client) FetchRequest(ctx context.Context, id int64) (LeaveRequestRecord, error) {
	var out LeaveRequestRecord
	err := c.do(ctx, "fetch_request", http.MethodGet, "/api/leave-requests/"+strconv.FormatInt(id, 10), nil, nil, &out)
	return out, err
}

func (c *Client) SubmitRequest(ctx context.Context, employeeIDCode string, payload SubmitPayload) (LeaveRequestRecord, error) {
	q := url.Values{}
	q.Set("employeeIdCode", employeeIDCode)

	var out LeaveRequestRecord
	err := c.do(ctx, "submit_request", http.MethodPost, "/api/leave-requests", q, payload, &out)
	return out, err
}

func (c *Client) ApproveRequest(ctx context.Context, id int64, adminID string) (LeaveRequestRecord, error) {
	var out LeaveRequestRecord
	path := "/api/leave-requests/" + strconv.FormatInt(id, 10) + "/approve"
	err := c.do(ctx, "approve_request", http.MethodPut, path, nil, decisionPayload{ApprovedBy: adminID}, &out)
	return out, err
}

func (c *Client) RejectRequest(ctx context.Context, id int64, adminID, reason string) (LeaveRequestRecord, error) {
	var out LeaveRequestRecord
	path := "/api/leave-requests/" + strconv.FormatInt(id, 10) + "/reject"
	body := decisionPayload{RejectedBy: adminID, RejectionReason: reason}
	err := c.do(ctx, "reject_request", http.MethodPut, path, nil, body, &out)
	return out, err
}

func (c *Client) FetchCurrentUser(ctx context.Context, employeeID string) (UserInfo, error) {
	q := url.Values{}
	q.Set("employeeId", employeeID)

	var out UserInfo
	err := c.do(ctx, "fetch_user", http.MethodGet, "/api/auth/userinfo", q, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	start := time.Now()
	err := c.call(ctx, method, path, query, body, out)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(err, ErrNetworkFailure) {
			outcome = "network"
		}
		c.logger.Warn("leave api call failed",
			zap.String("operation", op),
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
	}
	c.metrics.APICall(op, outcome, time.Since(start).Seconds())
	return err
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}

	raw, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		token := contextutil.GetAuthToken(ctx)
		if token == "" {
			token = c.token
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		if rid := contextutil.GetRequestID(ctx); rid != "" {
			req.Header.Set("X-Request-ID", rid)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, err)
		}
		return data, classify(resp.StatusCode, data)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %w", ErrNetworkFailure, err)
		}
		return err
	}

	if out == nil {
		return nil
	}
	env := envelope[json.RawMessage]{}
	if err := json.Unmarshal(raw.([]byte), &env); err != nil {
		return ErrMalformedResponse.WithCause(fmt.Errorf("decode envelope: %w", err))
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return ErrMalformedResponse.WithCause(fmt.Errorf("decode data: %w", err))
	}
	return nil
}

func classify(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return apperror.ErrForbidden
	}

	var env envelope[json.RawMessage]
	_ = json.Unmarshal(body, &env)
	return &StatusError{StatusCode: status, Message: env.Message}
}
