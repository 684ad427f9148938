package logic

import (
	"math/big"
	"testing"
	"time"

	"github.com/blues/cfc/internal/model"
)

const (
	creator     = "0xCREATOR"
	contributor = "0xBACKER"
	stranger    = "0xOTHER"
)

func expiredProject(policy model.RefundPolicy, goal, raised int64) *model.ProjectRecord {
	return &model.ProjectRecord{
		Index:          7,
		CreatorAddress: creator,
		Category:       model.CategoryFilm,
		RefundPolicy:   policy,
		CreationTime:   1000,
		Duration:       100,
		FundingGoal:    big.NewInt(goal),
		AmountRaised:   big.NewInt(raised),
		Contributions: []model.Contribution{
			{Contributor: contributor, Amount: big.NewInt(raised)},
		},
	}
}

func eligibilityAt(p *model.ProjectRecord, viewer string, now int64) Eligibility {
	status := EvaluateLifecycle(p, time.Unix(now, 0))
	return EvaluateEligibility(p, status, viewer)
}

// Scenario A: goal=100, raised=100, Refundable, expired, viewer=creator
func TestClaimFundEligibleWhenRefundableAndFullyFunded(t *testing.T) {
	p := expiredProject(model.RefundPolicyRefundable, 100, 100)
	e := eligibilityAt(p, creator, 2000)
	if e.Action != ActionClaimFund {
		t.Fatalf("action = %q, want claim_fund", e.Action)
	}
}

// Scenario B: goal=100, raised=50, Refundable, expired
func TestRefundableUnderfundedProject(t *testing.T) {
	p := expiredProject(model.RefundPolicyRefundable, 100, 50)

	if e := eligibilityAt(p, creator, 2000); e.Action != ActionNone {
		t.Fatalf("creator action = %q, want none", e.Action)
	}
	if e := eligibilityAt(p, contributor, 2000); e.Action != ActionClaimRefund {
		t.Fatalf("contributor action = %q, want claim_refund", e.Action)
	}
}

// Scenario C: goal=100, raised=50, NonRefundable, expired
func TestNonRefundableUnderfundedProject(t *testing.T) {
	p := expiredProject(model.RefundPolicyNonRefundable, 100, 50)

	if e := eligibilityAt(p, creator, 2000); e.Action != ActionClaimFund {
		t.Fatalf("creator action = %q, want claim_fund (raised > 0)", e.Action)
	}
	if e := eligibilityAt(p, contributor, 2000); e.Action != ActionNone {
		t.Fatalf("contributor action = %q, refunds never allowed under non-refundable", e.Action)
	}
}

func TestNonRefundableZeroRaisedNothingToClaim(t *testing.T) {
	p := expiredProject(model.RefundPolicyNonRefundable, 100, 0)
	p.Contributions = nil
	if e := eligibilityAt(p, creator, 2000); e.Action != ActionNone {
		t.Fatalf("creator action = %q, want none with zero raised", e.Action)
	}
}

// Scenario D: not expired, viewer != creator
func TestFundEligibleWhileOpen(t *testing.T) {
	p := expiredProject(model.RefundPolicyRefundable, 100, 500) // over goal, still open
	if e := eligibilityAt(p, stranger, 1050); e.Action != ActionFund {
		t.Fatalf("action = %q, want fund regardless of ratio", e.Action)
	}
	if e := eligibilityAt(p, creator, 1050); e.Action != ActionNone {
		t.Fatalf("creator must not fund own project, got %q", e.Action)
	}
}

func TestClaimFundBlockedOnceClaimed(t *testing.T) {
	p := expiredProject(model.RefundPolicyRefundable, 100, 100)
	p.ClaimedAmount = true
	e := eligibilityAt(p, creator, 2000)
	if e.Action != ActionNone {
		t.Fatalf("action = %q, want none after claim", e.Action)
	}
	if !e.FundClaimed {
		t.Fatal("terminal fund-claimed state must be reported")
	}
}

func TestClaimRefundBlockedOnceClaimed(t *testing.T) {
	p := expiredProject(model.RefundPolicyRefundable, 100, 50)
	p.Contributions[0].RefundClaimed = true
	e := eligibilityAt(p, contributor, 2000)
	if e.Action != ActionNone {
		t.Fatalf("action = %q, want none after refund", e.Action)
	}
	if !e.RefundClaimed {
		t.Fatal("terminal refund-claimed state must be reported")
	}
}

func TestCreatorContributorResolvesThroughCreatorBranch(t *testing.T) {
	p := expiredProject(model.RefundPolicyRefundable, 100, 50)
	p.Contributions = append(p.Contributions, model.Contribution{
		Contributor: creator, Amount: big.NewInt(10),
	})
	e := eligibilityAt(p, creator, 2000)
	if e.Action == ActionClaimRefund {
		t.Fatal("creator branch must take precedence over contributor branch")
	}
	if !e.IsCreator {
		t.Fatal("creator flag not set")
	}
}

func TestNonContributorGetsNoRefund(t *testing.T) {
	p := expiredProject(model.RefundPolicyRefundable, 100, 50)
	if e := eligibilityAt(p, stranger, 2000); e.Action != ActionNone {
		t.Fatalf("stranger action = %q, want none", e.Action)
	}
}

// at most one action eligible for any (record, viewer, now)
func TestEligibilityMutuallyExclusive(t *testing.T) {
	policies := []model.RefundPolicy{model.RefundPolicyRefundable, model.RefundPolicyNonRefundable}
	viewers := []string{creator, contributor, stranger}
	times := []int64{1050, 2000}
	raised := []int64{0, 50, 100, 150}

	for _, policy := range policies {
		for _, amount := range raised {
			p := expiredProject(policy, 100, amount)
			for _, viewer := range viewers {
				for _, now := range times {
					e := eligibilityAt(p, viewer, now)
					switch e.Action {
					case ActionNone, ActionFund, ActionClaimFund, ActionClaimRefund:
					default:
						t.Fatalf("unexpected action %q", e.Action)
					}
					if e.Action == ActionFund && viewer == creator {
						t.Fatal("creator can never fund")
					}
					if e.Action == ActionClaimFund && viewer != creator {
						t.Fatal("only creator can claim funds")
					}
					if e.Action == ActionClaimRefund && viewer == creator {
						t.Fatal("creator can never claim a refund")
					}
				}
			}
		}
	}
}
