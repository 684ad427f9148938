package logic

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/blues/cfc/internal/logger"
	"github.com/blues/cfc/internal/model"
	"github.com/google/uuid"
)

// ActionState 结算操作状态机：
// Idle -> Submitting -> Confirming -> Settled | Failed
type ActionState string

const (
	ActionStateIdle       ActionState = "idle"
	ActionStateSubmitting ActionState = "submitting"
	ActionStateConfirming ActionState = "confirming"
	ActionStateSettled    ActionState = "settled"
	ActionStateFailed     ActionState = "failed"
)

// ActionResult 单次结算操作的最终结果。
// Settled 时携带重新拉取后的最新快照。
type ActionResult struct {
	ID           string               `json:"id"`
	Action       Action               `json:"action"`
	ProjectIndex int64                `json:"project_index"`
	Viewer       string               `json:"viewer"`
	TxHash       string               `json:"tx_hash"`
	State        ActionState          `json:"state"`
	Record       *model.ProjectRecord `json:"record,omitempty"`
}

// SnapshotSink 结算完成后的本地落库出口，可为空。
type SnapshotSink interface {
	SaveSnapshot(p *model.ProjectRecord) error
	RecordAction(id string, projectIndex int64, viewer string, action string, txHash string, amount *big.Int) error
}

// SettlementExecutor 结算操作执行器。
// 同一 (项目, 观察者) 同时只允许一个在途操作；
// 确认成功后以全量重拉的方式对账本地快照，绝不逐字段手补，
// 失败时本地快照保持未修改。
type SettlementExecutor struct {
	reader         LedgerReader
	writer         LedgerWriter
	sink           SnapshotSink
	confirmTimeout time.Duration

	mu       sync.Mutex
	inflight map[inflightKey]struct{}
}

type inflightKey struct {
	index  int64
	viewer string
}

// NewSettlementExecutor 创建结算执行器。
// confirmTimeout 为单次确认等待上限，0 表示不设上限。
func NewSettlementExecutor(reader LedgerReader, writer LedgerWriter, sink SnapshotSink, confirmTimeout time.Duration) *SettlementExecutor {
	return &SettlementExecutor{
		reader:         reader,
		writer:         writer,
		sink:           sink,
		confirmTimeout: confirmTimeout,
		inflight:       make(map[inflightKey]struct{}),
	}
}

// Fund 对项目出资。金额为账本最小货币单位，必须为正。
func (e *SettlementExecutor) Fund(ctx context.Context, p *model.ProjectRecord, viewer string, amount *big.Int) (*ActionResult, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: 出资金额必须为正", model.ErrNotEligible)
	}
	return e.run(ctx, p, viewer, ActionFund, amount, func(ctx context.Context) (PendingAction, error) {
		return e.writer.FundProject(ctx, p.Index, amount)
	})
}

// ClaimFund 创建者提取筹款
func (e *SettlementExecutor) ClaimFund(ctx context.Context, p *model.ProjectRecord, viewer string) (*ActionResult, error) {
	return e.run(ctx, p, viewer, ActionClaimFund, nil, func(ctx context.Context) (PendingAction, error) {
		return e.writer.ClaimFund(ctx, p.Index)
	})
}

// ClaimRefund 出资人申请退款
func (e *SettlementExecutor) ClaimRefund(ctx context.Context, p *model.ProjectRecord, viewer string) (*ActionResult, error) {
	return e.run(ctx, p, viewer, ActionClaimRefund, nil, func(ctx context.Context) (PendingAction, error) {
		return e.writer.ClaimRefund(ctx, p.Index)
	})
}

// run 执行一次结算操作。资格校验在任何账本交互之前完成，
// 不合格的请求在本地即被拒绝。
func (e *SettlementExecutor) run(ctx context.Context, p *model.ProjectRecord, viewer string, action Action,
	amount *big.Int, submit func(context.Context) (PendingAction, error)) (*ActionResult, error) {

	eligibility := EvaluateEligibility(p, EvaluateLifecycle(p, time.Now()), viewer)
	if eligibility.Action != action {
		return nil, fmt.Errorf("%w: 项目 %d 当前不允许 %s 操作", model.ErrNotEligible, p.Index, action)
	}

	key := inflightKey{index: p.Index, viewer: viewer}
	if !e.acquire(key) {
		return nil, fmt.Errorf("%w: 项目 %d 已有未完成的操作", model.ErrNotEligible, p.Index)
	}
	defer e.release(key)

	result := &ActionResult{
		ID:           uuid.NewString(),
		Action:       action,
		ProjectIndex: p.Index,
		Viewer:       viewer,
		State:        ActionStateSubmitting,
	}

	pending, err := submit(ctx)
	if err != nil {
		result.State = ActionStateFailed
		return result, fmt.Errorf("%w: 提交 %s 失败: %v", model.ErrLedgerUnavailable, action, err)
	}
	result.TxHash = pending.TxHash()
	result.State = ActionStateConfirming
	logger.Info("action %s submitted: project=%d viewer=%s tx=%s", action, p.Index, viewer, result.TxHash)

	waitCtx := ctx
	if e.confirmTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, e.confirmTimeout)
		defer cancel()
	}
	if err := pending.Wait(waitCtx); err != nil {
		result.State = ActionStateFailed
		return result, fmt.Errorf("%w: %s 确认失败: %v", model.ErrLedgerRejected, action, err)
	}

	// 确认期间其它观察者可能已改变 amountRaised 和出资列表，
	// 对账只做全量重拉，不对单个字段打补丁。
	fresh, err := e.reader.GetProject(ctx, p.Index)
	if err != nil {
		result.State = ActionStateFailed
		return result, fmt.Errorf("%w: %s 已确认但刷新快照失败: %v", model.ErrLedgerUnavailable, action, err)
	}
	if err := fresh.Validate(); err != nil {
		result.State = ActionStateFailed
		return result, err
	}

	if e.sink != nil {
		if err := e.sink.SaveSnapshot(fresh); err != nil {
			logger.Error("failed to cache snapshot for project %d: %v", p.Index, err)
		}
		if err := e.sink.RecordAction(result.ID, p.Index, viewer, string(action), result.TxHash, amount); err != nil {
			logger.Error("failed to record action %s: %v", result.ID, err)
		}
	}

	result.State = ActionStateSettled
	result.Record = fresh
	logger.Info("action %s settled: project=%d viewer=%s tx=%s", action, p.Index, viewer, result.TxHash)
	return result, nil
}

func (e *SettlementExecutor) acquire(key inflightKey) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[key]; busy {
		return false
	}
	e.inflight[key] = struct{}{}
	return true
}

func (e *SettlementExecutor) release(key inflightKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, key)
}
