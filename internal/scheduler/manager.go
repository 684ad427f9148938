package scheduler

import (
	"github.com/blues/cfc/internal/config"
	"github.com/blues/cfc/internal/logger"
	"github.com/blues/cfc/internal/logic"
	"github.com/blues/cfc/internal/store"
	"github.com/go-co-op/gocron/v2"
)

// Manager 定时任务管理器
type Manager struct {
	scheduler gocron.Scheduler
	listing   *logic.ListingService
	cache     *store.Store
	config    *config.Config
}

// NewManager 创建定时任务管理器
func NewManager(listing *logic.ListingService, cache *store.Store, cfg *config.Config) *Manager {
	s, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}

	return &Manager{
		scheduler: s,
		listing:   listing,
		cache:     cache,
		config:    cfg,
	}
}

// Start 注册任务并启动调度器
func Start(listing *logic.ListingService, cache *store.Store, cfg *config.Config) *Manager {
	manager := NewManager(listing, cache, cfg)
	manager.RegisterJobs()
	manager.scheduler.Start()
	logger.Info("Scheduler started successfully")
	return manager
}

// RegisterJobs 注册所有任务
func (m *Manager) RegisterJobs() {
	m.registerSnapshotRefreshJob()
}

// registerSnapshotRefreshJob 注册快照刷新任务
func (m *Manager) registerSnapshotRefreshJob() {
	job := NewSnapshotRefreshJob(m.listing, m.cache, m.config)

	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
	}
}

// Stop 停止调度器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Scheduler stopped")
}
