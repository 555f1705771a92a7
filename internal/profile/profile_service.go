package profile

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	profileerrors "go-elms/internal/profile/errors"
	"go-elms/internal/rbac"
	"go-elms/internal/shared/contextutil"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	ProfileCacheKeyPrefix = "profile:"

	notAvailable    = "N/A"
	adminPosition   = "Admin"
	adminDepartment = "Administration"
	defaultCacheTTL = 30 * time.Minute
)

func ProfileCacheKey(employeeID string) string {
	return ProfileCacheKeyPrefix + employeeID
}

//go:generate mockgen -source=profile_service.go -destination=mock/profile_service_mock.go -package=mock
type Service interface {
	Current(ctx context.Context, employeeID, role string) (ProfileResponse, error)
	DisplayName(ctx context.Context, employeeID string) (string, error)
}

type service struct {
	source Source
	rdb    *redis.Client
	ttl    time.Duration
	sf     singleflight.Group
	logger *zap.Logger
}

func NewService(source Source, rdb *redis.Client, ttl time.Duration, logger ...*zap.Logger) Service {
	l := zap.L().Named("profile.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("profile.service")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &service{source: source, rdb: rdb, ttl: ttl, logger: l}
}

// Current returns the profile shown in the header. Missing position or
// department read "Admin"/"Administration" for administrators and "N/A" for
// everyone else; an administrator without a profile row still gets one.
func (s *service) Current(ctx context.Context, employeeID, role string) (ProfileResponse, error) {
	if strings.TrimSpace(employeeID) == "" {
		return ProfileResponse{}, profileerrors.ErrInvalidEmployeeID
	}
	isAdmin := strings.EqualFold(role, rbac.RoleAdmin)

	p, err := s.load(ctx, employeeID)
	if errors.Is(err, profileerrors.ErrProfileNotFound) && isAdmin {
		p = Profile{EmployeeID: employeeID, FullName: employeeID, Role: rbac.RoleAdmin}
		err = nil
	}
	if err != nil {
		return ProfileResponse{}, err
	}

	resp := mapToResponse(p)
	if resp.Role == "" {
		resp.Role = rbac.NormalizeRole(role)
	}
	if isAdmin {
		resp.Position = orDefault(resp.Position, adminPosition)
		resp.Department = orDefault(resp.Department, adminDepartment)
	} else {
		resp.Position = orDefault(resp.Position, notAvailable)
		resp.Department = orDefault(resp.Department, notAvailable)
	}
	resp.EmployeeIDCode = orDefault(resp.EmployeeIDCode, notAvailable)
	return resp, nil
}

// DisplayName lets the leave service stamp requests with the requester's name.
func (s *service) DisplayName(ctx context.Context, employeeID string) (string, error) {
	p, err := s.load(ctx, employeeID)
	if err != nil {
		return "", err
	}
	return p.FullName, nil
}

func (s *service) load(ctx context.Context, employeeID string) (Profile, error) {
	log := contextutil.GetLogger(ctx, s.logger)
	key := ProfileCacheKey(employeeID)

	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, key).Result(); err == nil {
			var p Profile
			if json.Unmarshal([]byte(cached), &p) == nil {
				return p, nil
			}
		}
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		p, err := s.source.FindByEmployeeID(ctx, employeeID)
		if err != nil {
			return nil, err
		}
		if s.rdb != nil {
			if data, err := json.Marshal(p); err == nil {
				if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
					log.Warn("profile cache write failed", zap.String("employee_id", employeeID), zap.Error(err))
				}
			}
		}
		return *p, nil
	})
	if err != nil {
		return Profile{}, err
	}
	return v.(Profile), nil
}

func mapToResponse(p Profile) ProfileResponse {
	return ProfileResponse{
		EmployeeID:     p.EmployeeID,
		EmployeeIDCode: p.EmployeeIDCode,
		FullName:       p.FullName,
		Username:       p.Username,
		Position:       p.Position,
		Department:     p.Department,
		Role:           p.Role,
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
