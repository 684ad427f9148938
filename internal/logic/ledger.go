package logic

import (
	"context"
	"math/big"

	"github.com/blues/cfc/internal/model"
)

// LedgerReader 账本只读接口，返回规范化后的项目快照。
type LedgerReader interface {
	// GetAllProjects 返回全部项目快照（含账本分配的序号）
	GetAllProjects(ctx context.Context) ([]model.ProjectRecord, error)
	// GetProject 返回单个项目快照
	GetProject(ctx context.Context, index int64) (*model.ProjectRecord, error)
	// GetProjects 按序号批量返回项目快照，顺序与入参一致
	GetProjects(ctx context.Context, indexes []int64) ([]model.ProjectRecord, error)
	// GetCreatorProjects 返回某创建者名下的项目序号列表
	GetCreatorProjects(ctx context.Context, creator string) ([]int64, error)
	// GetUserFundings 返回某地址出资过的项目序号列表
	GetUserFundings(ctx context.Context, funder string) ([]int64, error)
}

// PendingAction 已提交待确认的账本写操作句柄
type PendingAction interface {
	// TxHash 提交后的交易哈希
	TxHash() string
	// Wait 阻塞等待账本确认终局，确认失败或超时返回错误
	Wait(ctx context.Context) error
}

// ProjectDraft 创建项目的入参
type ProjectDraft struct {
	ProjectName  string             `json:"project_name"`
	Description  string             `json:"description"`
	CreatorName  string             `json:"creator_name"`
	Link         string             `json:"link"`
	ImageRef     string             `json:"image_ref"`
	FundingGoal  *big.Int           `json:"funding_goal"`
	Duration     int64              `json:"duration"`
	Category     model.Category     `json:"category"`
	RefundPolicy model.RefundPolicy `json:"refund_policy"`
}

// LedgerWriter 账本写接口，每个写操作返回待确认句柄。
type LedgerWriter interface {
	CreateProject(ctx context.Context, draft ProjectDraft) (PendingAction, error)
	FundProject(ctx context.Context, index int64, amount *big.Int) (PendingAction, error)
	ClaimFund(ctx context.Context, index int64) (PendingAction, error)
	ClaimRefund(ctx context.Context, index int64) (PendingAction, error)
}
