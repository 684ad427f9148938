package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/blues/cfc/internal/config"
	"github.com/blues/cfc/internal/logger"
	"github.com/blues/cfc/internal/logic"
	"github.com/blues/cfc/internal/model"
	"github.com/blues/cfc/internal/store"
	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
)

// SnapshotRefreshJob 周期性全量拉取项目快照并刷新本地缓存。
// 落库通过协程池并发执行，单次任务内等待全部完成。
type SnapshotRefreshJob struct {
	listing *logic.ListingService
	cache   *store.Store
	config  *config.Config
}

// NewSnapshotRefreshJob 创建快照刷新任务
func NewSnapshotRefreshJob(listing *logic.ListingService, cache *store.Store, cfg *config.Config) *SnapshotRefreshJob {
	return &SnapshotRefreshJob{
		listing: listing,
		cache:   cache,
		config:  cfg,
	}
}

// GetName 获取任务名称
func (j *SnapshotRefreshJob) GetName() string {
	return "snapshot_refresher"
}

// GetSchedule 获取调度配置
func (j *SnapshotRefreshJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.RefreshInterval) * time.Second)
}

// Execute 执行一轮刷新
func (j *SnapshotRefreshJob) Execute() {
	logger.Info("Starting snapshot refresh task")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	records, err := j.listing.FetchAll(ctx)
	if err != nil {
		logger.Error("Failed to fetch projects for refresh: %v", err)
		return
	}

	poolSize := j.config.Task.PoolSize
	if poolSize <= 0 {
		poolSize = 8
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		logger.Error("Failed to create refresh pool: %v", err)
		return
	}
	defer pool.Release()

	var wg sync.WaitGroup
	var mu sync.Mutex
	saved := 0

	for i := range records {
		record := records[i]
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if err := j.saveSnapshot(&record); err != nil {
				logger.Error("Failed to cache snapshot for project %d: %v", record.Index, err)
				return
			}
			mu.Lock()
			saved++
			mu.Unlock()
		}); err != nil {
			wg.Done()
			logger.Error("Failed to submit refresh task for project %d: %v", record.Index, err)
		}
	}
	wg.Wait()

	logger.Info("Snapshot refresh finished: %d/%d projects cached", saved, len(records))
}

func (j *SnapshotRefreshJob) saveSnapshot(record *model.ProjectRecord) error {
	return j.cache.SaveSnapshot(record)
}
