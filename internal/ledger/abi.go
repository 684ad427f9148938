package ledger

import (
	"fmt"
	"math/big"

	"github.com/blues/cfc/internal/model"
	"github.com/ethereum/go-ethereum/common"
)

// 众筹合约ABI定义
const contractABI = `[
	{
		"inputs": [{"name": "_index", "type": "uint256"}],
		"name": "getProject",
		"outputs": [{"name": "project", "type": "tuple", "components": [
			{"name": "projectName", "type": "string"},
			{"name": "projectDescription", "type": "string"},
			{"name": "creatorName", "type": "string"},
			{"name": "projectLink", "type": "string"},
			{"name": "cid", "type": "string"},
			{"name": "fundingGoal", "type": "uint256"},
			{"name": "amountRaised", "type": "uint256"},
			{"name": "creationTime", "type": "uint256"},
			{"name": "duration", "type": "uint256"},
			{"name": "creatorAddress", "type": "address"},
			{"name": "category", "type": "uint8"},
			{"name": "refundPolicy", "type": "uint8"},
			{"name": "contributors", "type": "address[]"},
			{"name": "amount", "type": "uint256[]"},
			{"name": "refundClaimed", "type": "bool[]"},
			{"name": "claimedAmount", "type": "bool"}
		]}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getAllProjectsDetail",
		"outputs": [{"name": "projects", "type": "tuple[]", "components": [
			{"name": "projectName", "type": "string"},
			{"name": "projectDescription", "type": "string"},
			{"name": "creatorName", "type": "string"},
			{"name": "projectLink", "type": "string"},
			{"name": "cid", "type": "string"},
			{"name": "fundingGoal", "type": "uint256"},
			{"name": "amountRaised", "type": "uint256"},
			{"name": "creationTime", "type": "uint256"},
			{"name": "duration", "type": "uint256"},
			{"name": "creatorAddress", "type": "address"},
			{"name": "category", "type": "uint8"},
			{"name": "refundPolicy", "type": "uint8"},
			{"name": "contributors", "type": "address[]"},
			{"name": "amount", "type": "uint256[]"},
			{"name": "refundClaimed", "type": "bool[]"},
			{"name": "claimedAmount", "type": "bool"}
		]}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "_indexList", "type": "uint256[]"}],
		"name": "getProjectsDetail",
		"outputs": [{"name": "projects", "type": "tuple[]", "components": [
			{"name": "projectName", "type": "string"},
			{"name": "projectDescription", "type": "string"},
			{"name": "creatorName", "type": "string"},
			{"name": "projectLink", "type": "string"},
			{"name": "cid", "type": "string"},
			{"name": "fundingGoal", "type": "uint256"},
			{"name": "amountRaised", "type": "uint256"},
			{"name": "creationTime", "type": "uint256"},
			{"name": "duration", "type": "uint256"},
			{"name": "creatorAddress", "type": "address"},
			{"name": "category", "type": "uint8"},
			{"name": "refundPolicy", "type": "uint8"},
			{"name": "contributors", "type": "address[]"},
			{"name": "amount", "type": "uint256[]"},
			{"name": "refundClaimed", "type": "bool[]"},
			{"name": "claimedAmount", "type": "bool"}
		]}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "_creator", "type": "address"}],
		"name": "getCreatorProjects",
		"outputs": [{"name": "indexList", "type": "uint256[]"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "_contributor", "type": "address"}],
		"name": "getUserFundings",
		"outputs": [{"name": "fundings", "type": "tuple[]", "components": [
			{"name": "contributor", "type": "address"},
			{"name": "projectIndex", "type": "uint256"},
			{"name": "amount", "type": "uint256"}
		]}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "_projectName", "type": "string"},
			{"name": "_projectDescription", "type": "string"},
			{"name": "_creatorName", "type": "string"},
			{"name": "_projectLink", "type": "string"},
			{"name": "_cid", "type": "string"},
			{"name": "_fundingGoal", "type": "uint256"},
			{"name": "_duration", "type": "uint256"},
			{"name": "_category", "type": "uint256"},
			{"name": "_refundPolicy", "type": "uint256"}
		],
		"name": "createNewProject",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "_index", "type": "uint256"}],
		"name": "fundProject",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [{"name": "_index", "type": "uint256"}],
		"name": "claimFund",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "_index", "type": "uint256"}],
		"name": "claimRefund",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// contractProject 合约返回的项目元组，字段顺序与ABI一致。
// 出资人、金额、退款标记在合约侧是三个平行数组，
// 仅在本边界层被拉平成复合记录，核心代码不接触平行数组。
type contractProject struct {
	ProjectName        string
	ProjectDescription string
	CreatorName        string
	ProjectLink        string
	Cid                string
	FundingGoal        *big.Int
	AmountRaised       *big.Int
	CreationTime       *big.Int
	Duration           *big.Int
	CreatorAddress     common.Address
	Category           uint8
	RefundPolicy       uint8
	Contributors       []common.Address
	Amount             []*big.Int
	RefundClaimed      []bool
	ClaimedAmount      bool
}

// contractFunding 合约返回的出资元组
type contractFunding struct {
	Contributor  common.Address
	ProjectIndex *big.Int
	Amount       *big.Int
}

// toRecord 将合约元组规范化为本地快照并做完整性校验。
// 地址在此处统一用 EIP-55 格式化，之后只做精确比较。
func toRecord(cp contractProject, index int64) (*model.ProjectRecord, error) {
	if len(cp.Contributors) != len(cp.Amount) || len(cp.Contributors) != len(cp.RefundClaimed) {
		return nil, fmt.Errorf("%w: 项目 %d 出资数组长度不一致: %d/%d/%d",
			model.ErrDataIntegrity, index, len(cp.Contributors), len(cp.Amount), len(cp.RefundClaimed))
	}

	contributions := make([]model.Contribution, len(cp.Contributors))
	for i := range cp.Contributors {
		contributions[i] = model.Contribution{
			Contributor:   cp.Contributors[i].Hex(),
			Amount:        cp.Amount[i],
			RefundClaimed: cp.RefundClaimed[i],
		}
	}

	record := &model.ProjectRecord{
		Index:          index,
		ProjectName:    cp.ProjectName,
		Description:    cp.ProjectDescription,
		CreatorName:    cp.CreatorName,
		CreatorAddress: cp.CreatorAddress.Hex(),
		Link:           cp.ProjectLink,
		ImageRef:       cp.Cid,
		Category:       model.Category(cp.Category),
		RefundPolicy:   model.RefundPolicy(cp.RefundPolicy),
		FundingGoal:    cp.FundingGoal,
		AmountRaised:   cp.AmountRaised,
		CreationTime:   cp.CreationTime.Int64(),
		Duration:       cp.Duration.Int64(),
		Contributions:  contributions,
		ClaimedAmount:  cp.ClaimedAmount,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}
