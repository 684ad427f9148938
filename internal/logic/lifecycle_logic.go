package logic

import (
	"context"
	"math/big"
	"time"

	"github.com/blues/cfc/internal/model"
)

// LifecycleStatus 由项目快照和当前时间推导出的生命周期状态，
// 纯计算结果，不含任何网络或可变副作用。
type LifecycleStatus struct {
	Remaining   int64   `json:"remaining"`    // 剩余秒数，已过期时为负
	Expired     bool    `json:"expired"`      // 是否已到截止时间
	FundedRatio float64 `json:"funded_ratio"` // 已筹金额 / 目标金额
	FullyFunded bool    `json:"fully_funded"` // 是否达成筹款目标
}

// Countdown 倒计时展示值。过期后四个字段全部固定为零。
type Countdown struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
}

// EvaluateLifecycle 计算项目在 now 时刻的生命周期状态。
// 可以按任意轮询间隔重复调用。
func EvaluateLifecycle(p *model.ProjectRecord, now time.Time) LifecycleStatus {
	remaining := p.Deadline() - now.Unix()

	ratio := float64(0)
	if p.FundingGoal != nil && p.FundingGoal.Sign() > 0 && p.AmountRaised != nil {
		raised, _ := new(big.Float).SetInt(p.AmountRaised).Float64()
		goal, _ := new(big.Float).SetInt(p.FundingGoal).Float64()
		ratio = raised / goal
	}

	return LifecycleStatus{
		Remaining:   remaining,
		Expired:     remaining <= 0,
		FundedRatio: ratio,
		FullyFunded: p.FullyFunded(),
	}
}

// Countdown 将剩余时间分解为天/时/分/秒。
// 剩余时间不为正时全部钳制为零，不会出现负值。
func (s LifecycleStatus) Countdown() Countdown {
	if s.Remaining <= 0 {
		return Countdown{}
	}
	return Countdown{
		Days:    s.Remaining / 86400,
		Hours:   (s.Remaining % 86400) / 3600,
		Minutes: (s.Remaining % 3600) / 60,
		Seconds: s.Remaining % 60,
	}
}

// WatchCountdown 按 interval 周期推送项目倒计时。
// 倒计时到零后推送最后一个全零值并关闭通道；
// ctx 取消时释放定时器并关闭通道，保证视图销毁后不再产生更新。
func WatchCountdown(ctx context.Context, p *model.ProjectRecord, interval time.Duration) <-chan Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	out := make(chan Countdown, 1)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				status := EvaluateLifecycle(p, now)
				select {
				case out <- status.Countdown():
				case <-ctx.Done():
					return
				}
				if status.Expired {
					return
				}
			}
		}
	}()

	return out
}
