package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go-elms/internal/config"
	"go-elms/internal/shared/apperror"
	"go-elms/internal/shared/contextutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.HandlerFunc, maxFailures uint32) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(config.APIConfig{
		BaseURL:             srv.URL,
		Token:               "static-token",
		Timeout:             2 * time.Second,
		BreakerMaxFailures:  maxFailures,
		BreakerOpenDuration: time.Minute,
	}, nil, zap.NewNop())
	require.NoError(t, err)
	return c, srv
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func TestNew(t *testing.T) {
	t.Run("negative invalid base url", func(t *testing.T) {
		_, err := New(config.APIConfig{BaseURL: "not a url"}, nil, zap.NewNop())
		assert.Error(t, err)
	})
}

func TestClient_FetchLeaveBalance(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/leave-balances/my-balance", r.URL.Path)
			assert.Equal(t, "emp-1", r.URL.Query().Get("employeeId"))
			assert.Equal(t, "2025", r.URL.Query().Get("year"))
			assert.Equal(t, "Bearer static-token", r.Header.Get("Authorization"))
			writeData(w, http.StatusOK, map[string]any{"used": 10, "entitlement": 12})
		}, 3)

		got, err := c.FetchLeaveBalance(context.Background(), "emp-1", 2025)
		require.NoError(t, err)
		assert.Equal(t, 10, got.Used)
		assert.Equal(t, 12, got.Entitlement)
	})

	t.Run("success request token wins over static token", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
			assert.Equal(t, "rid-1", r.Header.Get("X-Request-ID"))
			writeData(w, http.StatusOK, map[string]any{"used": 0, "entitlement": 12})
		}, 3)

		ctx := contextutil.WithAuthToken(context.Background(), "user-token")
		ctx = contextutil.WithRequestID(ctx, "rid-1")
		_, err := c.FetchLeaveBalance(ctx, "emp-1", 2025)
		require.NoError(t, err)
	})

	t.Run("negative unauthorized", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}, 3)

		_, err := c.FetchLeaveBalance(context.Background(), "emp-1", 2025)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("negative forbidden", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}, 3)

		_, err := c.FetchLeaveBalance(context.Background(), "emp-1", 2025)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})
}

func TestClient_MalformedResponse(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}, 3)

	_, err := c.FetchLeaveBalance(context.Background(), "emp-1", 2025)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, http.StatusBadGateway, apperror.ToHTTP(err).Status)
}

func TestClient_FetchRequests(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/leave-requests/my-requests", r.URL.Path)
			assert.Equal(t, "E-001", r.URL.Query().Get("employeeIdCode"))
			writeData(w, http.StatusOK, []map[string]any{
				{"id": 7, "status": "PENDING", "startDate": "2025-11-03", "endDate": "2025-11-04", "reason": "Vacation", "totalDays": 2},
			})
		}, 3)

		got, err := c.FetchRequests(context.Background(), "E-001")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(7), got[0].ID)
		assert.Equal(t, "PENDING", got[0].Status)
		require.NotNil(t, got[0].TotalDays)
		assert.Equal(t, 2, *got[0].TotalDays)
	})

	t.Run("success null data", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeData(w, http.StatusOK, nil)
		}, 3)

		got, err := c.FetchRequests(context.Background(), "E-001")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestClient_SubmitRequest(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "E-001", r.URL.Query().Get("employeeIdCode"))
			var body SubmitPayload
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Vacation", body.Reason)
			writeData(w, http.StatusCreated, map[string]any{"id": 11, "status": "PENDING"})
		}, 3)

		got, err := c.SubmitRequest(context.Background(), "E-001", SubmitPayload{
			StartDate: "2025-11-03", EndDate: "2025-11-04", Reason: "Vacation",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(11), got.ID)
	})

	t.Run("negative approve conflict keeps status", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"already decided"}`))
		}, 3)

		_, err := c.ApproveRequest(context.Background(), 7, "mgr1")
		require.Error(t, err)
		assert.True(t, HasStatus(err, http.StatusConflict))
		assert.Contains(t, err.Error(), "already decided")
	})
}

func TestClient_Decisions(t *testing.T) {
	t.Run("success reject sends reason", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/api/leave-requests/7/reject", r.URL.Path)
			var body decisionPayload
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "mgr1", body.RejectedBy)
			assert.Equal(t, "team offsite", body.RejectionReason)
			writeData(w, http.StatusOK, map[string]any{"id": 7, "status": "REJECTED"})
		}, 3)

		got, err := c.RejectRequest(context.Background(), 7, "mgr1", "team offsite")
		require.NoError(t, err)
		assert.Equal(t, "REJECTED", got.Status)
	})
}

func TestClient_Breaker(t *testing.T) {
	t.Run("negative server errors open the breaker", func(t *testing.T) {
		var hits int32
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(http.StatusBadGateway)
		}, 2)

		for i := 0; i < 2; i++ {
			_, err := c.FetchAllRequests(context.Background())
			require.Error(t, err)
		}
		_, err := c.FetchAllRequests(context.Background())
		assert.ErrorIs(t, err, ErrNetworkFailure)
		assert.Equal(t, int32(2), atomic.LoadInt32(&hits))

		httpErr := apperror.ToHTTP(err)
		assert.Equal(t, http.StatusServiceUnavailable, httpErr.Status)
	})

	t.Run("success client errors do not trip", func(t *testing.T) {
		var hits int32
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(http.StatusNotFound)
		}, 1)

		for i := 0; i < 3; i++ {
			_, err := c.FetchRequest(context.Background(), 99)
			assert.True(t, HasStatus(err, http.StatusNotFound))
		}
		assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	})

	t.Run("negative unreachable host", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c, err := New(config.APIConfig{BaseURL: url, Timeout: time.Second, BreakerMaxFailures: 5}, nil, zap.NewNop())
		require.NoError(t, err)

		_, err = c.FetchCurrentUser(context.Background(), "emp-1")
		assert.True(t, errors.Is(err, ErrNetworkFailure))
	})
}

func TestClient_FetchCurrentUser(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/auth/userinfo", r.URL.Path)
			writeData(w, http.StatusOK, map[string]any{
				"fullName": "Dana Putri", "position": "Engineer", "department": "IT",
				"employeeIdCode": "E-001", "username": "dana",
			})
		}, 3)

		got, err := c.FetchCurrentUser(context.Background(), "emp-1")
		require.NoError(t, err)
		assert.Equal(t, "Dana Putri", got.FullName)
		assert.Equal(t, "E-001", got.EmployeeIDCode)
	})
}
