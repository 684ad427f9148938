package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/blues/cfc/internal/logic"
	"github.com/blues/cfc/internal/model"
	"github.com/blues/cfc/internal/store"
	"github.com/gin-gonic/gin"
)

// ProjectHandler 项目查询接口
type ProjectHandler struct {
	listing *logic.ListingService
	cache   *store.Store
}

// NewProjectHandler 创建项目查询接口
func NewProjectHandler(listing *logic.ListingService, cache *store.Store) *ProjectHandler {
	return &ProjectHandler{listing: listing, cache: cache}
}

// GetProjects 获取项目列表，支持分类过滤。
// 未携带 category 参数时返回完整集合。
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	filter := logic.FilterNone
	if raw, ok := c.GetQuery("category"); ok {
		code, err := strconv.Atoi(raw)
		if err != nil || !model.Category(code).Valid() {
			ErrorResponse(c, http.StatusBadRequest, "无效的分类编码: "+raw)
			return
		}
		filter = logic.CategoryFilter(code)
	}

	records, err := h.listing.FetchAll(c.Request.Context())
	if err != nil {
		FailWithError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{
		"projects": logic.FilterByCategory(records, filter),
	})
}

// GetProject 获取项目详情，附带生命周期状态、倒计时、
// 按金额排序的出资记录，以及 viewer 参数对应的操作资格。
func (h *ProjectHandler) GetProject(c *gin.Context) {
	index, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目序号")
		return
	}

	record, err := h.listing.Project(c.Request.Context(), index)
	if err != nil {
		FailWithError(c, err)
		return
	}

	status := logic.EvaluateLifecycle(record, time.Now())
	detail := ProjectDetailResponse{
		Record:        record,
		Lifecycle:     status,
		Countdown:     status.Countdown(),
		Contributions: record.RankedContributions(),
	}
	if viewer, ok := c.GetQuery("viewer"); ok {
		eligibility := logic.EvaluateEligibility(record, status, viewer)
		detail.Eligibility = &eligibility
	}

	SuccessResponse(c, http.StatusOK, "", detail)
}

// GetHome 首页聚合：全站统计、精选推荐、最近上架。
// 账本不可达时退化为本地缓存快照。
func (h *ProjectHandler) GetHome(c *gin.Context) {
	stale := false
	records, err := h.listing.FetchAll(c.Request.Context())
	if errors.Is(err, model.ErrLedgerUnavailable) {
		records, err = h.cache.ListSnapshots()
		stale = true
	}
	if err != nil {
		FailWithError(c, err)
		return
	}
	home := logic.SelectHome(records)
	SuccessResponse(c, http.StatusOK, "", gin.H{
		"stats":          logic.Stats(records),
		"featured":       home.Featured,
		"recent_uploads": home.RecentUploads,
		"stale":          stale,
	})
}

// GetProfile 创建者主页：名下项目按截止时间拆分，
// viewer 查看自己的主页时附带出资过的项目。
func (h *ProjectHandler) GetProfile(c *gin.Context) {
	address := c.Param("address")

	ongoing, completed, err := h.listing.CreatorProfile(c.Request.Context(), address, time.Now())
	if err != nil {
		FailWithError(c, err)
		return
	}

	data := gin.H{
		"ongoing_projects":   ongoing,
		"completed_projects": completed,
	}
	if viewer, ok := c.GetQuery("viewer"); ok && viewer == address {
		funded, err := h.listing.ViewerFundings(c.Request.Context(), address)
		if err != nil {
			FailWithError(c, err)
			return
		}
		data["funded_projects"] = funded
	}

	SuccessResponse(c, http.StatusOK, "", data)
}

// GetProjectActions 项目的已结算操作历史（本地缓存）
func (h *ProjectHandler) GetProjectActions(c *gin.Context) {
	index, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目序号")
		return
	}
	actions, err := h.cache.ProjectActions(index)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "", gin.H{"actions": actions})
}

// StreamCountdown 以SSE推送项目倒计时，连接断开即停止推送。
// 定时器的生命周期挂在请求上下文上，视图销毁后不再产生更新。
func (h *ProjectHandler) StreamCountdown(c *gin.Context) {
	index, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目序号")
		return
	}

	record, err := h.listing.Project(c.Request.Context(), index)
	if err != nil {
		FailWithError(c, err)
		return
	}

	ticks := logic.WatchCountdown(c.Request.Context(), record, time.Second)
	c.Stream(func(w io.Writer) bool {
		cd, ok := <-ticks
		if !ok {
			return false
		}
		c.SSEvent("countdown", cd)
		return true
	})
}
