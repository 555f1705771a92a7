package profile

import (
	"context"
	"errors"
	"net/http"

	"go-elms/internal/apiclient"
	profileerrors "go-elms/internal/profile/errors"

	"go.uber.org/zap"
)

// UserInfoAPI is the userinfo call of apiclient.Client.
type UserInfoAPI interface {
	FetchCurrentUser(ctx context.Context, employeeID string) (apiclient.UserInfo, error)
}

type remoteSource struct {
	api    UserInfoAPI
	mirror Repository
	logger *zap.Logger
}

// NewRemoteSource reads profiles from the leave API. When mirror is set each
// fetched profile is also upserted there, and the local copy answers while the
// API is unreachable.
func NewRemoteSource(api UserInfoAPI, mirror Repository, logger ...*zap.Logger) Source {
	l := zap.L().Named("profile.remote")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("profile.remote")
	}
	return &remoteSource{api: api, mirror: mirror, logger: l}
}

func (s *remoteSource) FindByEmployeeID(ctx context.Context, employeeID string) (*Profile, error) {
	info, err := s.api.FetchCurrentUser(ctx, employeeID)
	if apiclient.HasStatus(err, http.StatusNotFound) {
		return nil, profileerrors.ErrProfileNotFound
	}
	if errors.Is(err, apiclient.ErrNetworkFailure) && s.mirror != nil {
		p, mirrorErr := s.mirror.FindByEmployeeID(ctx, employeeID)
		if mirrorErr != nil {
			return nil, err
		}
		s.logger.Warn("profile served from mirror", zap.String("employee_id", employeeID), zap.Error(err))
		return p, nil
	}
	if err != nil {
		return nil, err
	}

	p := &Profile{
		EmployeeID:     employeeID,
		EmployeeIDCode: info.EmployeeIDCode,
		FullName:       info.FullName,
		Username:       info.Username,
		Position:       info.Position,
		Department:     info.Department,
		Role:           info.Role,
	}
	if s.mirror != nil {
		if err := s.mirror.Upsert(ctx, p); err != nil {
			s.logger.Warn("profile mirror failed", zap.String("employee_id", employeeID), zap.Error(err))
		}
	}
	return p, nil
}
