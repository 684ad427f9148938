package model

import (
	"fmt"
	"math/big"
	"sort"
)

// Category 项目分类（与合约编码一致，闭集）
type Category uint8

const (
	CategoryDesignAndTech Category = iota // 设计与科技
	CategoryFilm                          // 影视
	CategoryArts                          // 艺术
	CategoryGames                         // 游戏
)

// Valid 分类编码是否在闭集内
func (c Category) Valid() bool {
	return c <= CategoryGames
}

// String 分类展示名
func (c Category) String() string {
	switch c {
	case CategoryDesignAndTech:
		return "Design & Tech"
	case CategoryFilm:
		return "Film"
	case CategoryArts:
		return "Arts"
	case CategoryGames:
		return "Games"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// RefundPolicy 退款策略（创建后不可变更）
type RefundPolicy uint8

const (
	RefundPolicyRefundable    RefundPolicy = iota // 可退款
	RefundPolicyNonRefundable                     // 不可退款
)

// Valid 退款策略编码是否在闭集内
func (r RefundPolicy) Valid() bool {
	return r <= RefundPolicyNonRefundable
}

// String 退款策略展示名
func (r RefundPolicy) String() string {
	switch r {
	case RefundPolicyRefundable:
		return "Refundable"
	case RefundPolicyNonRefundable:
		return "Non-Refundable"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(r))
	}
}

// Contribution 单笔出资记录。
// 出资人地址、金额、退款标记必须作为一个整体携带，
// 排序时只允许整体移动，禁止拆成三个平行数组各自排序。
type Contribution struct {
	Contributor   string   `json:"contributor"`
	Amount        *big.Int `json:"amount"`
	RefundClaimed bool     `json:"refund_claimed"`
}

// ProjectRecord 单个项目在本地的只读快照，账本记账数据为准。
// Index 为账本分配的项目序号。
type ProjectRecord struct {
	Index          int64          `json:"index"`
	ProjectName    string         `json:"project_name"`
	Description    string         `json:"description"`
	CreatorName    string         `json:"creator_name"`
	CreatorAddress string         `json:"creator_address"`
	Link           string         `json:"link"`
	ImageRef       string         `json:"image_ref"`
	Category       Category       `json:"category"`
	RefundPolicy   RefundPolicy   `json:"refund_policy"`
	FundingGoal    *big.Int       `json:"funding_goal"`
	AmountRaised   *big.Int       `json:"amount_raised"`
	CreationTime   int64          `json:"creation_time"`
	Duration       int64          `json:"duration"`
	Contributions  []Contribution `json:"contributions"`
	ClaimedAmount  bool           `json:"claimed_amount"`
}

// Deadline 项目截止时间（Unix秒），创建后固定不变
func (p *ProjectRecord) Deadline() int64 {
	return p.CreationTime + p.Duration
}

// FullyFunded 是否已达成筹款目标
func (p *ProjectRecord) FullyFunded() bool {
	if p.AmountRaised == nil || p.FundingGoal == nil {
		return false
	}
	return p.AmountRaised.Cmp(p.FundingGoal) >= 0
}

// TotalContributed 所有出资之和。
// 与账本同步的快照应满足 TotalContributed == AmountRaised。
func (p *ProjectRecord) TotalContributed() *big.Int {
	total := new(big.Int)
	for _, c := range p.Contributions {
		if c.Amount != nil {
			total.Add(total, c.Amount)
		}
	}
	return total
}

// ContributionOf 返回该地址第一笔出资的下标，不存在返回 -1。
// 地址按精确值比较，不做大小写归一化。
func (p *ProjectRecord) ContributionOf(address string) int {
	for i, c := range p.Contributions {
		if c.Contributor == address {
			return i
		}
	}
	return -1
}

// HasUnclaimedContribution 该地址是否存在未退款的出资
func (p *ProjectRecord) HasUnclaimedContribution(address string) bool {
	for _, c := range p.Contributions {
		if c.Contributor == address && !c.RefundClaimed {
			return true
		}
	}
	return false
}

// HasClaimedContribution 该地址是否存在已退款的出资
func (p *ProjectRecord) HasClaimedContribution(address string) bool {
	for _, c := range p.Contributions {
		if c.Contributor == address && c.RefundClaimed {
			return true
		}
	}
	return false
}

// RankedContributions 按出资金额降序返回出资记录副本，
// 金额相同时保持原始出资顺序。原切片不被修改。
func (p *ProjectRecord) RankedContributions() []Contribution {
	ranked := make([]Contribution, len(p.Contributions))
	copy(ranked, p.Contributions)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Amount.Cmp(ranked[j].Amount) > 0
	})
	return ranked
}

// Validate 校验账本返回的字段是否完整合法，
// 枚举越界或金额为负视为数据完整性错误。
func (p *ProjectRecord) Validate() error {
	if !p.Category.Valid() {
		return fmt.Errorf("%w: 项目 %d 分类编码越界: %d", ErrDataIntegrity, p.Index, uint8(p.Category))
	}
	if !p.RefundPolicy.Valid() {
		return fmt.Errorf("%w: 项目 %d 退款策略编码越界: %d", ErrDataIntegrity, p.Index, uint8(p.RefundPolicy))
	}
	if p.FundingGoal == nil || p.FundingGoal.Sign() < 0 {
		return fmt.Errorf("%w: 项目 %d 筹款目标为负或缺失", ErrDataIntegrity, p.Index)
	}
	if p.AmountRaised == nil || p.AmountRaised.Sign() < 0 {
		return fmt.Errorf("%w: 项目 %d 已筹金额为负或缺失", ErrDataIntegrity, p.Index)
	}
	for i, c := range p.Contributions {
		if c.Amount == nil || c.Amount.Sign() < 0 {
			return fmt.Errorf("%w: 项目 %d 第 %d 笔出资金额为负或缺失", ErrDataIntegrity, p.Index, i)
		}
	}
	return nil
}
