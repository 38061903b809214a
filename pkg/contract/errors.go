package contract

import "errors"

// 读写与预算相关的最小错误分类。
var (
	// ErrPathInvalid: 被监视路径为空或指向目录。
	ErrPathInvalid = errors.New("path invalid")
	// ErrBudgetExceeded: 请求估算 token 超出上限。
	ErrBudgetExceeded = errors.New("budget exceeded")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。
	ErrInvariantViolation = errors.New("invariant violation")
)
