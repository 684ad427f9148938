package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/blues/cfc/internal/logic"
	"github.com/blues/cfc/internal/model"
	"github.com/gin-gonic/gin"
)

// ActionHandler 结算操作接口
type ActionHandler struct {
	listing  *logic.ListingService
	executor *logic.SettlementExecutor
	writer   logic.LedgerWriter
}

// NewActionHandler 创建结算操作接口
func NewActionHandler(listing *logic.ListingService, executor *logic.SettlementExecutor, writer logic.LedgerWriter) *ActionHandler {
	return &ActionHandler{listing: listing, executor: executor, writer: writer}
}

// CreateProject 创建项目并等待账本确认
func (h *ActionHandler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	draft, err := req.toDraft()
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	pending, err := h.writer.CreateProject(c.Request.Context(), *draft)
	if err != nil {
		FailWithError(c, err)
		return
	}
	if err := pending.Wait(c.Request.Context()); err != nil {
		FailWithError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "项目创建成功", gin.H{
		"tx_hash": pending.TxHash(),
	})
}

// FundProject 对项目出资
func (h *ActionHandler) FundProject(c *gin.Context) {
	index, ok := h.projectIndex(c)
	if !ok {
		return
	}
	var req FundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := toBaseUnits(req.Amount)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	record, err := h.listing.Project(c.Request.Context(), index)
	if err != nil {
		FailWithError(c, err)
		return
	}
	result, err := h.executor.Fund(c.Request.Context(), record, req.Viewer, amount)
	if err != nil {
		FailWithError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "出资成功", result)
}

// ClaimFund 创建者提取筹款
func (h *ActionHandler) ClaimFund(c *gin.Context) {
	h.claim(c, h.executor.ClaimFund, "筹款提取成功")
}

// ClaimRefund 出资人申请退款
func (h *ActionHandler) ClaimRefund(c *gin.Context) {
	h.claim(c, h.executor.ClaimRefund, "退款成功")
}

func (h *ActionHandler) projectIndex(c *gin.Context) (int64, bool) {
	index, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目序号")
		return 0, false
	}
	return index, true
}

func (h *ActionHandler) claim(c *gin.Context,
	do func(context.Context, *model.ProjectRecord, string) (*logic.ActionResult, error), message string) {

	index, ok := h.projectIndex(c)
	if !ok {
		return
	}
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	record, err := h.listing.Project(c.Request.Context(), index)
	if err != nil {
		FailWithError(c, err)
		return
	}
	result, err := do(c.Request.Context(), record, req.Viewer)
	if err != nil {
		FailWithError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, message, result)
}
