package model

import "errors"

// 核心错误类别。
// ErrNotEligible 和 ErrDataIntegrity 不可重试，立即上报；
// ErrLedgerRejected / ErrLedgerUnavailable 上报底层原因，
// 本地快照保持未修改，重试总是安全的。
var (
	// ErrNotEligible 操作不满足当前项目状态下的资格规则
	ErrNotEligible = errors.New("不满足操作资格")

	// ErrLedgerRejected 账本拒绝或回滚了写入操作
	ErrLedgerRejected = errors.New("账本拒绝了该操作")

	// ErrLedgerUnavailable 账本读写请求无法提交
	ErrLedgerUnavailable = errors.New("账本服务不可用")

	// ErrDataIntegrity 账本返回的数据不满足完整性约束
	ErrDataIntegrity = errors.New("数据完整性错误")
)
