package logic

import "github.com/blues/cfc/internal/model"

// Action 当前观察者可执行的结算操作
type Action string

const (
	ActionNone        Action = ""             // 无可执行操作
	ActionFund        Action = "fund"         // 出资
	ActionClaimFund   Action = "claim_fund"   // 创建者提取筹款
	ActionClaimRefund Action = "claim_refund" // 出资人申请退款
)

// Eligibility 资格判定结果。
// 同一 (项目, 观察者, 时刻) 至多允许一个操作；
// 无操作可执行时补充上报对应的终态标记，
// 便于调用方展示"已领取"而不是静默。
type Eligibility struct {
	Action        Action `json:"action"`
	IsCreator     bool   `json:"is_creator"`
	FundClaimed   bool   `json:"fund_claimed"`   // 创建者已提取筹款
	RefundClaimed bool   `json:"refund_claimed"` // 该出资人已申请过退款
}

// claimFundAllowed 创建者提取筹款的成功条件：
// 不可退款策略下筹到任意金额即可提取，
// 可退款策略下必须达成筹款目标。
func claimFundAllowed(p *model.ProjectRecord, status LifecycleStatus) bool {
	if p.RefundPolicy == model.RefundPolicyNonRefundable {
		return p.AmountRaised != nil && p.AmountRaised.Sign() > 0
	}
	return status.FullyFunded
}

// claimRefundAllowed 出资人退款的前置条件：
// 仅可退款策略且未达成目标时开放，不可退款策略下永不退款。
func claimRefundAllowed(p *model.ProjectRecord, status LifecycleStatus) bool {
	if p.RefundPolicy == model.RefundPolicyNonRefundable {
		return false
	}
	return !status.FullyFunded
}

// EvaluateEligibility 按优先级判定观察者对项目可执行的操作。
// 创建者同时是出资人时走创建者分支。
// 地址按精确值比较，不做大小写归一化。
func EvaluateEligibility(p *model.ProjectRecord, status LifecycleStatus, viewer string) Eligibility {
	isCreator := viewer == p.CreatorAddress

	// 未过期：非创建者可出资
	if !status.Expired {
		if !isCreator {
			return Eligibility{Action: ActionFund}
		}
		return Eligibility{IsCreator: true}
	}

	// 已过期，创建者分支
	if isCreator {
		e := Eligibility{IsCreator: true, FundClaimed: p.ClaimedAmount}
		if claimFundAllowed(p, status) && !p.ClaimedAmount {
			e.Action = ActionClaimFund
		}
		return e
	}

	// 已过期，出资人分支
	e := Eligibility{RefundClaimed: p.HasClaimedContribution(viewer) && !p.HasUnclaimedContribution(viewer)}
	if claimRefundAllowed(p, status) && p.HasUnclaimedContribution(viewer) {
		e.Action = ActionClaimRefund
	}
	return e
}
