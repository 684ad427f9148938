package logic

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/blues/cfc/internal/model"
)

// fakeLedger implements LedgerReader and LedgerWriter against in-memory state.
type fakeLedger struct {
	mu             sync.Mutex
	records        map[int64]*model.ProjectRecord
	creatorIndexes []int64
	fundedIndexes  []int64
	submitErr      error
	waitErr        error
	fetchErr       error
	waitDelay      time.Duration
	submits        int
	fetches        int
	onWait         func() // runs during confirmation, before Wait returns
	lastAmount     *big.Int
}

type fakePending struct {
	ledger *fakeLedger
	hash   string
}

func (p *fakePending) TxHash() string { return p.hash }

func (p *fakePending) Wait(ctx context.Context) error {
	if p.ledger.waitDelay > 0 {
		select {
		case <-time.After(p.ledger.waitDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.ledger.onWait != nil {
		p.ledger.onWait()
	}
	return p.ledger.waitErr
}

func (f *fakeLedger) submit() (PendingAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &fakePending{ledger: f, hash: fmt.Sprintf("0xtx%d", f.submits)}, nil
}

func (f *fakeLedger) GetAllProjects(ctx context.Context) ([]model.ProjectRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ProjectRecord
	for _, p := range f.records {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeLedger) GetProject(ctx context.Context, index int64) (*model.ProjectRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	p, ok := f.records[index]
	if !ok {
		return nil, errors.New("no such project")
	}
	cp := *p
	return &cp, nil
}

func (f *fakeLedger) GetProjects(ctx context.Context, indexes []int64) ([]model.ProjectRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records := make([]model.ProjectRecord, 0, len(indexes))
	for _, index := range indexes {
		p, ok := f.records[index]
		if !ok {
			return nil, errors.New("no such project")
		}
		records = append(records, *p)
	}
	return records, nil
}

func (f *fakeLedger) GetCreatorProjects(ctx context.Context, creator string) ([]int64, error) {
	return f.creatorIndexes, nil
}

func (f *fakeLedger) GetUserFundings(ctx context.Context, funder string) ([]int64, error) {
	return f.fundedIndexes, nil
}

func (f *fakeLedger) CreateProject(ctx context.Context, draft ProjectDraft) (PendingAction, error) {
	return f.submit()
}

func (f *fakeLedger) FundProject(ctx context.Context, index int64, amount *big.Int) (PendingAction, error) {
	f.lastAmount = amount
	return f.submit()
}

func (f *fakeLedger) ClaimFund(ctx context.Context, index int64) (PendingAction, error) {
	return f.submit()
}

func (f *fakeLedger) ClaimRefund(ctx context.Context, index int64) (PendingAction, error) {
	return f.submit()
}

func openProject(index int64) *model.ProjectRecord {
	now := time.Now().Unix()
	return &model.ProjectRecord{
		Index:          index,
		CreatorAddress: creator,
		Category:       model.CategoryGames,
		RefundPolicy:   model.RefundPolicyRefundable,
		CreationTime:   now - 10,
		Duration:       3600,
		FundingGoal:    big.NewInt(100),
		AmountRaised:   big.NewInt(0),
	}
}

func newFakeLedger(p *model.ProjectRecord) *fakeLedger {
	return &fakeLedger{records: map[int64]*model.ProjectRecord{p.Index: p}}
}

func TestFundSettlesAndReconcilesByRefetch(t *testing.T) {
	p := openProject(1)
	ledger := newFakeLedger(p)
	// the ledger applies the contribution during confirmation
	ledger.onWait = func() {
		ledger.mu.Lock()
		defer ledger.mu.Unlock()
		stored := ledger.records[1]
		stored.AmountRaised = big.NewInt(40)
		stored.Contributions = append(stored.Contributions,
			model.Contribution{Contributor: contributor, Amount: big.NewInt(40)})
	}
	exec := NewSettlementExecutor(ledger, ledger, nil, 0)

	view := *p // the caller holds its own stale copy
	result, err := exec.Fund(context.Background(), &view, contributor, big.NewInt(40))
	if err != nil {
		t.Fatalf("fund failed: %v", err)
	}
	if result.State != ActionStateSettled {
		t.Fatalf("state = %s, want settled", result.State)
	}
	if result.Record == nil || result.Record.AmountRaised.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("reconciled record not refetched: %+v", result.Record)
	}
	if result.Record.TotalContributed().Cmp(result.Record.AmountRaised) != 0 {
		t.Fatal("amountRaised != sum of contributions after reconciliation")
	}
	if ledger.fetches != 1 {
		t.Fatalf("expected exactly one reconciliation fetch, got %d", ledger.fetches)
	}
}

func TestFundRejectsNonPositiveAmount(t *testing.T) {
	p := openProject(1)
	ledger := newFakeLedger(p)
	exec := NewSettlementExecutor(ledger, ledger, nil, 0)

	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5)} {
		_, err := exec.Fund(context.Background(), p, contributor, amount)
		if !errors.Is(err, model.ErrNotEligible) {
			t.Fatalf("amount %v: want ErrNotEligible, got %v", amount, err)
		}
	}
	if ledger.submits != 0 {
		t.Fatal("invalid amounts must be rejected before submission")
	}
}

func TestIneligibleActionRejectedWithoutLedgerContact(t *testing.T) {
	p := openProject(1)
	p.ClaimedAmount = true
	p.Duration = 1
	p.CreationTime = time.Now().Unix() - 100 // expired
	p.AmountRaised = big.NewInt(100)
	ledger := newFakeLedger(p)
	exec := NewSettlementExecutor(ledger, ledger, nil, 0)

	// claimFund after claimedAmount is already true
	_, err := exec.ClaimFund(context.Background(), p, creator)
	if !errors.Is(err, model.ErrNotEligible) {
		t.Fatalf("want ErrNotEligible, got %v", err)
	}
	if ledger.submits != 0 || ledger.fetches != 0 {
		t.Fatal("ineligible request must not contact the ledger")
	}
}

func TestSingleInflightActionPerProjectViewer(t *testing.T) {
	p := openProject(1)
	ledger := newFakeLedger(p)
	ledger.waitDelay = 200 * time.Millisecond
	exec := NewSettlementExecutor(ledger, ledger, nil, 0)

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := exec.Fund(context.Background(), p, contributor, big.NewInt(10))
		done <- err
	}()
	<-started
	time.Sleep(50 * time.Millisecond) // let the first request reach Confirming

	_, err := exec.Fund(context.Background(), p, contributor, big.NewInt(10))
	if !errors.Is(err, model.ErrNotEligible) {
		t.Fatalf("duplicate in-flight request: want ErrNotEligible, got %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("first request failed: %v", err)
	}

	// terminal state resets to idle: a new request is permitted
	if _, err := exec.Fund(context.Background(), p, contributor, big.NewInt(10)); err != nil {
		t.Fatalf("request after settle failed: %v", err)
	}
}

func TestRejectedActionLeavesRecordUntouched(t *testing.T) {
	p := openProject(1)
	ledger := newFakeLedger(p)
	ledger.waitErr = errors.New("execution reverted")
	exec := NewSettlementExecutor(ledger, ledger, nil, 0)

	before := *p
	result, err := exec.Fund(context.Background(), p, contributor, big.NewInt(10))
	if !errors.Is(err, model.ErrLedgerRejected) {
		t.Fatalf("want ErrLedgerRejected, got %v", err)
	}
	if result.State != ActionStateFailed {
		t.Fatalf("state = %s, want failed", result.State)
	}
	if p.AmountRaised.Cmp(before.AmountRaised) != 0 || len(p.Contributions) != len(before.Contributions) {
		t.Fatal("failed action must not mutate the local record")
	}
	if ledger.fetches != 0 {
		t.Fatal("no reconciliation fetch on failure")
	}
}

func TestRejectedActionSurfacesUnderlyingReason(t *testing.T) {
	p := openProject(1)
	ledger := newFakeLedger(p)
	ledger.waitErr = errors.New("execution reverted: goal already met")
	exec := NewSettlementExecutor(ledger, ledger, nil, 0)

	_, err := exec.Fund(context.Background(), p, contributor, big.NewInt(10))
	if err == nil || !errors.Is(err, model.ErrLedgerRejected) {
		t.Fatalf("want ErrLedgerRejected, got %v", err)
	}
	if got := err.Error(); !strings.Contains(got, "goal already met") {
		t.Fatalf("underlying reason not surfaced: %q", got)
	}
}

func TestSubmitFailureMapsToLedgerUnavailable(t *testing.T) {
	p := openProject(1)
	ledger := newFakeLedger(p)
	ledger.submitErr = errors.New("connection refused")
	exec := NewSettlementExecutor(ledger, ledger, nil, 0)

	_, err := exec.Fund(context.Background(), p, contributor, big.NewInt(10))
	if !errors.Is(err, model.ErrLedgerUnavailable) {
		t.Fatalf("want ErrLedgerUnavailable, got %v", err)
	}
}

func TestConfirmTimeoutFailsTheAction(t *testing.T) {
	p := openProject(1)
	ledger := newFakeLedger(p)
	ledger.waitDelay = time.Second
	exec := NewSettlementExecutor(ledger, ledger, nil, 20*time.Millisecond)

	result, err := exec.Fund(context.Background(), p, contributor, big.NewInt(10))
	if !errors.Is(err, model.ErrLedgerRejected) {
		t.Fatalf("want ErrLedgerRejected on timeout, got %v", err)
	}
	if result.State != ActionStateFailed {
		t.Fatalf("state = %s, want failed", result.State)
	}
}

type recordingSink struct {
	snapshots []*model.ProjectRecord
	actions   []string
}

func (s *recordingSink) SaveSnapshot(p *model.ProjectRecord) error {
	s.snapshots = append(s.snapshots, p)
	return nil
}

func (s *recordingSink) RecordAction(id string, projectIndex int64, viewer, action, txHash string, amount *big.Int) error {
	s.actions = append(s.actions, action)
	return nil
}

func TestSettledActionFlowsIntoSink(t *testing.T) {
	p := openProject(1)
	ledger := newFakeLedger(p)
	sink := &recordingSink{}
	exec := NewSettlementExecutor(ledger, ledger, sink, 0)

	if _, err := exec.Fund(context.Background(), p, contributor, big.NewInt(10)); err != nil {
		t.Fatalf("fund failed: %v", err)
	}
	if len(sink.snapshots) != 1 || len(sink.actions) != 1 || sink.actions[0] != "fund" {
		t.Fatalf("sink not updated: %+v", sink)
	}
}
