package store

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/blues/cfc/internal/config"
	"github.com/blues/cfc/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// ProjectSnapshot 项目快照缓存行，每个项目序号一行。
// 快照只做整行替换，不做字段级修改。
type ProjectSnapshot struct {
	ProjectIndex      int64  `json:"project_index" gorm:"primaryKey"`
	ProjectName       string `json:"project_name"`
	Description       string `json:"description" gorm:"type:text"`
	CreatorName       string `json:"creator_name"`
	CreatorAddress    string `json:"creator_address" gorm:"index"`
	Link              string `json:"link"`
	ImageRef          string `json:"image_ref"`
	Category          uint8  `json:"category"`
	RefundPolicy      uint8  `json:"refund_policy"`
	FundingGoal       string `json:"funding_goal"`
	AmountRaised      string `json:"amount_raised"`
	CreationTime      int64  `json:"creation_time"`
	Duration          int64  `json:"duration"`
	Contributions     []byte `json:"contributions" gorm:"type:jsonb"`
	ContributionCount int    `json:"contribution_count"`
	ClaimedAmount     bool   `json:"claimed_amount"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (ProjectSnapshot) TableName() string {
	return "project_snapshot"
}

// ActionRecord 已结算操作的历史记录
type ActionRecord struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	ProjectIndex int64     `json:"project_index" gorm:"index"`
	Viewer       string    `json:"viewer"`
	Action       string    `json:"action"`
	TxHash       string    `json:"tx_hash" gorm:"uniqueIndex"`
	Amount       string    `json:"amount"`
	CreatedAt    time.Time `json:"created_at"`
}

func (ActionRecord) TableName() string {
	return "action_record"
}

// Init 连接数据库并自动迁移
func Init(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 自动迁移
	if err := db.AutoMigrate(
		&ProjectSnapshot{},
		&ActionRecord{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Store 快照缓存访问层
type Store struct {
	db *gorm.DB
}

// NewStore 创建缓存访问层
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// SaveSnapshot 整行落库一份项目快照，已存在则整行替换
func (s *Store) SaveSnapshot(p *model.ProjectRecord) error {
	row, err := toSnapshot(p)
	if err != nil {
		return err
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_index"}},
		UpdateAll: true,
	}).Create(row).Error
}

// SaveSnapshots 批量落库项目快照
func (s *Store) SaveSnapshots(records []model.ProjectRecord) error {
	for i := range records {
		if err := s.SaveSnapshot(&records[i]); err != nil {
			return err
		}
	}
	return nil
}

// RecordAction 记录一笔已结算操作
func (s *Store) RecordAction(id string, projectIndex int64, viewer, action, txHash string, amount *big.Int) error {
	row := &ActionRecord{
		ID:           id,
		ProjectIndex: projectIndex,
		Viewer:       viewer,
		Action:       action,
		TxHash:       txHash,
	}
	if amount != nil {
		row.Amount = amount.String()
	}
	return s.db.Create(row).Error
}

// Snapshot 读取单个项目的缓存快照
func (s *Store) Snapshot(index int64) (*model.ProjectRecord, error) {
	var row ProjectSnapshot
	if err := s.db.First(&row, "project_index = ?", index).Error; err != nil {
		return nil, fmt.Errorf("读取项目 %d 缓存快照失败: %w", index, err)
	}
	return toRecord(&row)
}

// ListSnapshots 读取全部缓存快照，按项目序号排序
func (s *Store) ListSnapshots() ([]model.ProjectRecord, error) {
	var rows []ProjectSnapshot
	if err := s.db.Order("project_index").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("读取缓存快照列表失败: %w", err)
	}
	records := make([]model.ProjectRecord, 0, len(rows))
	for i := range rows {
		record, err := toRecord(&rows[i])
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

// ProjectActions 读取某项目的操作历史，按时间倒序
func (s *Store) ProjectActions(index int64) ([]ActionRecord, error) {
	var rows []ActionRecord
	if err := s.db.Where("project_index = ?", index).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("读取项目 %d 操作历史失败: %w", index, err)
	}
	return rows, nil
}

func toSnapshot(p *model.ProjectRecord) (*ProjectSnapshot, error) {
	contributions, err := json.Marshal(p.Contributions)
	if err != nil {
		return nil, fmt.Errorf("序列化出资记录失败: %w", err)
	}
	return &ProjectSnapshot{
		ProjectIndex:      p.Index,
		ProjectName:       p.ProjectName,
		Description:       p.Description,
		CreatorName:       p.CreatorName,
		CreatorAddress:    p.CreatorAddress,
		Link:              p.Link,
		ImageRef:          p.ImageRef,
		Category:          uint8(p.Category),
		RefundPolicy:      uint8(p.RefundPolicy),
		FundingGoal:       p.FundingGoal.String(),
		AmountRaised:      p.AmountRaised.String(),
		CreationTime:      p.CreationTime,
		Duration:          p.Duration,
		Contributions:     contributions,
		ContributionCount: len(p.Contributions),
		ClaimedAmount:     p.ClaimedAmount,
	}, nil
}

func toRecord(row *ProjectSnapshot) (*model.ProjectRecord, error) {
	goal, ok := new(big.Int).SetString(row.FundingGoal, 10)
	if !ok {
		return nil, fmt.Errorf("%w: 项目 %d 缓存的筹款目标非法: %q", model.ErrDataIntegrity, row.ProjectIndex, row.FundingGoal)
	}
	raised, ok := new(big.Int).SetString(row.AmountRaised, 10)
	if !ok {
		return nil, fmt.Errorf("%w: 项目 %d 缓存的已筹金额非法: %q", model.ErrDataIntegrity, row.ProjectIndex, row.AmountRaised)
	}
	var contributions []model.Contribution
	if len(row.Contributions) > 0 {
		if err := json.Unmarshal(row.Contributions, &contributions); err != nil {
			return nil, fmt.Errorf("%w: 项目 %d 缓存的出资记录非法: %v", model.ErrDataIntegrity, row.ProjectIndex, err)
		}
	}
	return &model.ProjectRecord{
		Index:          row.ProjectIndex,
		ProjectName:    row.ProjectName,
		Description:    row.Description,
		CreatorName:    row.CreatorName,
		CreatorAddress: row.CreatorAddress,
		Link:           row.Link,
		ImageRef:       row.ImageRef,
		Category:       model.Category(row.Category),
		RefundPolicy:   model.RefundPolicy(row.RefundPolicy),
		FundingGoal:    goal,
		AmountRaised:   raised,
		CreationTime:   row.CreationTime,
		Duration:       row.Duration,
		Contributions:  contributions,
		ClaimedAmount:  row.ClaimedAmount,
	}, nil
}
