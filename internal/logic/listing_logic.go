package logic

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/blues/cfc/internal/model"
	"github.com/shopspring/decimal"
)

// 基础单位精度：账本最小货币单位到展示单位为 10^18
const displayUnitExponent = 18

// 首页推荐窗口大小
const (
	featuredCount      = 4
	recentUploadsCount = 20
)

// CategoryFilter 分类过滤条件。
// FilterNone 是与任何真实分类都不同的哨兵值，
// 表示不过滤，避免与分类编码 0 产生歧义。
type CategoryFilter int

const FilterNone CategoryFilter = -1

// PortfolioStats 全量项目的汇总统计
type PortfolioStats struct {
	TotalProjects      int             `json:"total_projects"`
	TotalFunding       decimal.Decimal `json:"total_funding"` // 展示单位
	TotalContributions int             `json:"total_contributions"`
}

// HomeSelection 首页推荐结果：按出资笔数排序后的前 4 个为精选，
// 其后 20 个为最近上架。每次拉取全量重算。
type HomeSelection struct {
	Featured      []model.ProjectRecord `json:"featured"`
	RecentUploads []model.ProjectRecord `json:"recent_uploads"`
}

// ListingService 项目列表与聚合服务
type ListingService struct {
	reader LedgerReader
}

// NewListingService 创建列表服务
func NewListingService(reader LedgerReader) *ListingService {
	return &ListingService{reader: reader}
}

// FetchAll 拉取全部项目快照并做完整性校验
func (s *ListingService) FetchAll(ctx context.Context) ([]model.ProjectRecord, error) {
	records, err := s.reader.GetAllProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: 拉取项目列表失败: %v", model.ErrLedgerUnavailable, err)
	}
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// Project 拉取单个项目快照并做完整性校验
func (s *ListingService) Project(ctx context.Context, index int64) (*model.ProjectRecord, error) {
	record, err := s.reader.GetProject(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("%w: 拉取项目 %d 失败: %v", model.ErrLedgerUnavailable, index, err)
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

// Stats 计算汇总统计，总筹款金额归一化为展示单位
func Stats(records []model.ProjectRecord) PortfolioStats {
	stats := PortfolioStats{TotalProjects: len(records), TotalFunding: decimal.Zero}
	for i := range records {
		if records[i].AmountRaised != nil {
			raised := decimal.NewFromBigInt(records[i].AmountRaised, -displayUnitExponent)
			stats.TotalFunding = stats.TotalFunding.Add(raised)
		}
		stats.TotalContributions += len(records[i].Contributions)
	}
	return stats
}

// FilterByCategory 按分类过滤，保持原始拉取顺序。
// filter 为 FilterNone 时返回完整集合。
func FilterByCategory(records []model.ProjectRecord, filter CategoryFilter) []model.ProjectRecord {
	if filter == FilterNone {
		return records
	}
	filtered := make([]model.ProjectRecord, 0, len(records))
	for i := range records {
		if CategoryFilter(records[i].Category) == filter {
			filtered = append(filtered, records[i])
		}
	}
	return filtered
}

// SelectHome 按出资笔数降序稳定排序后切出精选与最近上架窗口，
// 笔数相同保持原始拉取顺序。
func SelectHome(records []model.ProjectRecord) HomeSelection {
	ranked := make([]model.ProjectRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		return len(ranked[i].Contributions) > len(ranked[j].Contributions)
	})

	selection := HomeSelection{}
	if len(ranked) > featuredCount {
		selection.Featured = ranked[:featuredCount]
		rest := ranked[featuredCount:]
		if len(rest) > recentUploadsCount {
			rest = rest[:recentUploadsCount]
		}
		selection.RecentUploads = rest
	} else {
		selection.Featured = ranked
	}
	return selection
}

// CreatorProfile 某创建者名下的项目，按截止时间拆分为进行中与已结束
func (s *ListingService) CreatorProfile(ctx context.Context, creator string, now time.Time) (ongoing, completed []model.ProjectRecord, err error) {
	indexes, err := s.reader.GetCreatorProjects(ctx, creator)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: 拉取创建者项目失败: %v", model.ErrLedgerUnavailable, err)
	}
	records, err := s.reader.GetProjects(ctx, indexes)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: 拉取创建者项目失败: %v", model.ErrLedgerUnavailable, err)
	}
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return nil, nil, err
		}
		if EvaluateLifecycle(&records[i], now).Expired {
			completed = append(completed, records[i])
		} else {
			ongoing = append(ongoing, records[i])
		}
	}
	return ongoing, completed, nil
}

// ViewerFundings 某地址出资过的项目列表
func (s *ListingService) ViewerFundings(ctx context.Context, funder string) ([]model.ProjectRecord, error) {
	indexes, err := s.reader.GetUserFundings(ctx, funder)
	if err != nil {
		return nil, fmt.Errorf("%w: 拉取出资记录失败: %v", model.ErrLedgerUnavailable, err)
	}
	records, err := s.reader.GetProjects(ctx, indexes)
	if err != nil {
		return nil, fmt.Errorf("%w: 拉取出资项目失败: %v", model.ErrLedgerUnavailable, err)
	}
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return nil, err
		}
	}
	return records, nil
}
