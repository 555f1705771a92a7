package leaveerrors

import (
	"net/http"

	"go-elms/internal/shared/apperror"
)

var (
	ErrInvalidRange = apperror.New(
		apperror.CodeInvalidInput,
		"end date must be on or after the start date",
		http.StatusBadRequest,
	)
	ErrMissingReason = apperror.New(
		apperror.CodeInvalidInput,
		"a reason must be selected",
		http.StatusBadRequest,
	)
	ErrUnknownReason = apperror.New(
		apperror.CodeInvalidInput,
		"reason must be one of Personal reasons, Health reasons, Family reasons, Other",
		http.StatusBadRequest,
	)
	ErrMissingDetails = apperror.New(
		apperror.CodeInvalidInput,
		"details are required when the reason is Other",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidLeaveID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid leave request id",
		http.StatusBadRequest,
	)
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid employee id",
		http.StatusBadRequest,
	)
	ErrInvalidYear = apperror.New(
		apperror.CodeInvalidInput,
		"invalid year",
		http.StatusBadRequest,
	)
	ErrInvalidStatus = apperror.New(
		apperror.CodeInvalidInput,
		"unknown leave status",
		http.StatusBadRequest,
	)
	ErrBalanceExceeded = apperror.New(
		apperror.CodeInvalidState,
		"requested days exceed the remaining leave balance",
		http.StatusUnprocessableEntity,
	)
	ErrLeaveNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave request not found",
		http.StatusNotFound,
	)
	ErrAlreadyDecided = apperror.New(
		apperror.CodeConflict,
		"leave request has already been decided",
		http.StatusConflict,
	)
	ErrInvalidTransition = apperror.New(
		apperror.CodeInvalidState,
		"invalid leave status transition",
		http.StatusConflict,
	)
	ErrDuplicateID = apperror.New(
		apperror.CodeConflict,
		"leave request id already exists",
		http.StatusConflict,
	)
	ErrStaleRefresh = apperror.New(
		apperror.CodeConflict,
		"refresh superseded by a newer change",
		http.StatusConflict,
	)
)
