package handler

import (
	"fmt"
	"math/big"

	"github.com/blues/cfc/internal/logic"
	"github.com/blues/cfc/internal/model"
	"github.com/shopspring/decimal"
)

// 展示单位到账本最小货币单位的换算位数
const baseUnitExponent = 18

// CreateProjectRequest 创建项目入参，金额为展示单位的十进制字符串
type CreateProjectRequest struct {
	ProjectName  string `json:"project_name" binding:"required"`
	Description  string `json:"description"`
	CreatorName  string `json:"creator_name" binding:"required"`
	Link         string `json:"link"`
	ImageRef     string `json:"image_ref"`
	FundingGoal  string `json:"funding_goal" binding:"required"`
	Duration     int64  `json:"duration" binding:"required"`
	Category     uint8  `json:"category"`
	RefundPolicy uint8  `json:"refund_policy"`
}

// FundRequest 出资入参，金额为展示单位的十进制字符串
type FundRequest struct {
	Viewer string `json:"viewer" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

// ClaimRequest 提取筹款/退款入参
type ClaimRequest struct {
	Viewer string `json:"viewer" binding:"required"`
}

// ProjectDetailResponse 项目详情：快照加本地推导状态
type ProjectDetailResponse struct {
	Record        *model.ProjectRecord  `json:"record"`
	Lifecycle     logic.LifecycleStatus `json:"lifecycle"`
	Countdown     logic.Countdown       `json:"countdown"`
	Eligibility   *logic.Eligibility    `json:"eligibility,omitempty"`
	Contributions []model.Contribution  `json:"ranked_contributions"`
}

// toBaseUnits 将展示单位的十进制字符串换算为账本最小货币单位。
// 超出基础精度的小数位视为非法输入。
func toBaseUnits(display string) (*big.Int, error) {
	d, err := decimal.NewFromString(display)
	if err != nil {
		return nil, fmt.Errorf("金额格式非法: %q", display)
	}
	scaled := d.Shift(baseUnitExponent)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("金额精度超出基础单位: %q", display)
	}
	return scaled.BigInt(), nil
}

// toDraft 校验入参并转换为项目草稿
func (r *CreateProjectRequest) toDraft() (*logic.ProjectDraft, error) {
	goal, err := toBaseUnits(r.FundingGoal)
	if err != nil {
		return nil, err
	}
	if goal.Sign() <= 0 {
		return nil, fmt.Errorf("筹款目标必须大于0")
	}
	if r.Duration <= 0 {
		return nil, fmt.Errorf("筹款时长必须大于0")
	}
	category := model.Category(r.Category)
	if !category.Valid() {
		return nil, fmt.Errorf("分类编码非法: %d", r.Category)
	}
	policy := model.RefundPolicy(r.RefundPolicy)
	if !policy.Valid() {
		return nil, fmt.Errorf("退款策略编码非法: %d", r.RefundPolicy)
	}
	return &logic.ProjectDraft{
		ProjectName:  r.ProjectName,
		Description:  r.Description,
		CreatorName:  r.CreatorName,
		Link:         r.Link,
		ImageRef:     r.ImageRef,
		FundingGoal:  goal,
		Duration:     r.Duration,
		Category:     category,
		RefundPolicy: policy,
	}, nil
}
