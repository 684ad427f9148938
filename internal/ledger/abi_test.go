package ledger

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/blues/cfc/internal/model"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

func TestContractABIParses(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		t.Fatalf("ABI does not parse: %v", err)
	}
	for _, method := range []string{
		"getProject", "getAllProjectsDetail", "getProjectsDetail",
		"getCreatorProjects", "getUserFundings",
		"createNewProject", "fundProject", "claimFund", "claimRefund",
	} {
		if _, ok := parsed.Methods[method]; !ok {
			t.Fatalf("method %s missing from ABI", method)
		}
	}
	if parsed.Methods["fundProject"].StateMutability != "payable" {
		t.Fatal("fundProject must be payable")
	}
}

func sampleTuple() contractProject {
	return contractProject{
		ProjectName:        "p",
		ProjectDescription: "d",
		CreatorName:        "c",
		ProjectLink:        "https://example.com",
		Cid:                "ipfs.io/ipfs/xyz/pic.png",
		FundingGoal:        big.NewInt(100),
		AmountRaised:       big.NewInt(30),
		CreationTime:       big.NewInt(1000),
		Duration:           big.NewInt(3600),
		CreatorAddress:     common.HexToAddress("0x01"),
		Category:           2,
		RefundPolicy:       0,
		Contributors:       []common.Address{common.HexToAddress("0x02"), common.HexToAddress("0x03")},
		Amount:             []*big.Int{big.NewInt(10), big.NewInt(20)},
		RefundClaimed:      []bool{false, true},
		ClaimedAmount:      false,
	}
}

func TestToRecordZipsParallelArrays(t *testing.T) {
	record, err := toRecord(sampleTuple(), 5)
	if err != nil {
		t.Fatalf("toRecord failed: %v", err)
	}
	if record.Index != 5 {
		t.Fatalf("index = %d", record.Index)
	}
	if len(record.Contributions) != 2 {
		t.Fatalf("contributions = %d", len(record.Contributions))
	}
	// amount and refund flag stay attached to their contributor
	if record.Contributions[1].Amount.Cmp(big.NewInt(20)) != 0 || !record.Contributions[1].RefundClaimed {
		t.Fatalf("second contribution mangled: %+v", record.Contributions[1])
	}
	if record.CreatorAddress != common.HexToAddress("0x01").Hex() {
		t.Fatalf("creator address not normalized: %s", record.CreatorAddress)
	}
}

func TestToRecordRejectsMismatchedArrays(t *testing.T) {
	cp := sampleTuple()
	cp.RefundClaimed = cp.RefundClaimed[:1]
	if _, err := toRecord(cp, 0); !errors.Is(err, model.ErrDataIntegrity) {
		t.Fatalf("want ErrDataIntegrity, got %v", err)
	}
}

func TestToRecordRejectsOutOfEnumCategory(t *testing.T) {
	cp := sampleTuple()
	cp.Category = 9
	if _, err := toRecord(cp, 0); !errors.Is(err, model.ErrDataIntegrity) {
		t.Fatalf("want ErrDataIntegrity, got %v", err)
	}
}
