package util

import "errors"

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrCaseNotFound       = errors.New("case not found")
	ErrBlockNotFound      = errors.New("block not found")
	ErrBlockIncomplete    = errors.New("block not yet complete")
	ErrNoReports          = errors.New("no reports yet")
	ErrPreRequired        = errors.New("PRE assessment must be submitted before POST")
	ErrDuplicateRank      = errors.New("duplicate rank in diagnosis entries")
	ErrInvalidPhase       = errors.New("phase must be PRE or POST")
	ErrTermNotFound       = errors.New("diagnosis term not found")
	ErrNoCasesAvailable   = errors.New("no cases available for a new block")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
)
