package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/blues/cfc/internal/config"
	"github.com/blues/cfc/internal/logic"
	"github.com/blues/cfc/internal/model"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// 确认等待轮询间隔
const confirmPollInterval = 2 * time.Second

// Client 众筹合约客户端，实现账本读写接口。
// 读操作返回规范化后的项目快照，写操作返回待确认句柄。
type Client struct {
	client        *ethclient.Client
	contract      *bind.BoundContract
	contractAddr  common.Address
	privateKey    *ecdsa.PrivateKey
	chainID       *big.Int
	confirmations int
}

// 接口实现检查
var (
	_ logic.LedgerReader = (*Client)(nil)
	_ logic.LedgerWriter = (*Client)(nil)
)

// Init 连接RPC节点并绑定众筹合约
func Init(cfg config.LedgerConfig) (*Client, error) {
	client, err := ethclient.Dial(cfg.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ledger rpc: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	contractAddr := common.HexToAddress(cfg.ContractAddr)
	contract := bind.NewBoundContract(contractAddr, parsedABI, client, client, client)

	return &Client{
		client:        client,
		contract:      contract,
		contractAddr:  contractAddr,
		privateKey:    privateKey,
		chainID:       big.NewInt(cfg.ChainId),
		confirmations: cfg.Confirmations,
	}, nil
}

// AccountAddress 本端签名账户地址
func (c *Client) AccountAddress() string {
	return crypto.PubkeyToAddress(c.privateKey.PublicKey).Hex()
}

// GetProject 拉取单个项目快照
func (c *Client) GetProject(ctx context.Context, index int64) (*model.ProjectRecord, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getProject", big.NewInt(index))
	if err != nil {
		return nil, fmt.Errorf("%w: 读取项目 %d 失败: %v", model.ErrLedgerUnavailable, index, err)
	}
	cp := *abi.ConvertType(out[0], new(contractProject)).(*contractProject)
	return toRecord(cp, index)
}

// GetAllProjects 拉取全部项目快照，序号为合约内的数组下标
func (c *Client) GetAllProjects(ctx context.Context) ([]model.ProjectRecord, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getAllProjectsDetail")
	if err != nil {
		return nil, fmt.Errorf("%w: 读取项目列表失败: %v", model.ErrLedgerUnavailable, err)
	}
	cps := *abi.ConvertType(out[0], new([]contractProject)).(*[]contractProject)

	records := make([]model.ProjectRecord, 0, len(cps))
	for i, cp := range cps {
		record, err := toRecord(cp, int64(i))
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

// GetProjects 按序号批量拉取项目快照，返回顺序与入参一致
func (c *Client) GetProjects(ctx context.Context, indexes []int64) ([]model.ProjectRecord, error) {
	if len(indexes) == 0 {
		return nil, nil
	}
	indexList := make([]*big.Int, len(indexes))
	for i, index := range indexes {
		indexList[i] = big.NewInt(index)
	}

	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getProjectsDetail", indexList)
	if err != nil {
		return nil, fmt.Errorf("%w: 批量读取项目失败: %v", model.ErrLedgerUnavailable, err)
	}
	cps := *abi.ConvertType(out[0], new([]contractProject)).(*[]contractProject)
	if len(cps) != len(indexes) {
		return nil, fmt.Errorf("%w: 批量读取返回 %d 个项目，请求 %d 个",
			model.ErrDataIntegrity, len(cps), len(indexes))
	}

	records := make([]model.ProjectRecord, 0, len(cps))
	for i, cp := range cps {
		record, err := toRecord(cp, indexes[i])
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

// GetCreatorProjects 拉取创建者名下的项目序号列表
func (c *Client) GetCreatorProjects(ctx context.Context, creator string) ([]int64, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getCreatorProjects", common.HexToAddress(creator))
	if err != nil {
		return nil, fmt.Errorf("%w: 读取创建者项目失败: %v", model.ErrLedgerUnavailable, err)
	}
	raw := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)

	indexes := make([]int64, 0, len(raw))
	for _, v := range raw {
		indexes = append(indexes, v.Int64())
	}
	return indexes, nil
}

// GetUserFundings 拉取某地址出资过的项目序号列表
func (c *Client) GetUserFundings(ctx context.Context, funder string) ([]int64, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getUserFundings", common.HexToAddress(funder))
	if err != nil {
		return nil, fmt.Errorf("%w: 读取出资记录失败: %v", model.ErrLedgerUnavailable, err)
	}
	fundings := *abi.ConvertType(out[0], new([]contractFunding)).(*[]contractFunding)

	indexes := make([]int64, 0, len(fundings))
	for _, f := range fundings {
		indexes = append(indexes, f.ProjectIndex.Int64())
	}
	return indexes, nil
}

// CreateProject 提交项目创建交易
func (c *Client) CreateProject(ctx context.Context, draft logic.ProjectDraft) (logic.PendingAction, error) {
	return c.transact(ctx, nil, "createNewProject",
		draft.ProjectName,
		draft.Description,
		draft.CreatorName,
		draft.Link,
		draft.ImageRef,
		draft.FundingGoal,
		big.NewInt(draft.Duration),
		big.NewInt(int64(draft.Category)),
		big.NewInt(int64(draft.RefundPolicy)),
	)
}

// FundProject 提交出资交易，amount 为账本最小货币单位
func (c *Client) FundProject(ctx context.Context, index int64, amount *big.Int) (logic.PendingAction, error) {
	return c.transact(ctx, amount, "fundProject", big.NewInt(index))
}

// ClaimFund 提交筹款提取交易
func (c *Client) ClaimFund(ctx context.Context, index int64) (logic.PendingAction, error) {
	return c.transact(ctx, nil, "claimFund", big.NewInt(index))
}

// ClaimRefund 提交退款交易
func (c *Client) ClaimRefund(ctx context.Context, index int64) (logic.PendingAction, error) {
	return c.transact(ctx, nil, "claimRefund", big.NewInt(index))
}

// transact 签名并提交一笔合约调用
func (c *Client) transact(ctx context.Context, value *big.Int, method string, args ...interface{}) (logic.PendingAction, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(c.privateKey, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to build transactor: %w", err)
	}
	auth.Context = ctx
	auth.Value = value

	tx, err := c.contract.Transact(auth, method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to submit %s: %w", method, err)
	}
	return &pendingTx{client: c.client, tx: tx, confirmations: c.confirmations}, nil
}

// pendingTx 待确认交易句柄
type pendingTx struct {
	client        *ethclient.Client
	tx            *types.Transaction
	confirmations int
}

// TxHash 交易哈希
func (p *pendingTx) TxHash() string {
	return p.tx.Hash().Hex()
}

// Wait 阻塞等待交易上链并达到配置的确认数。
// 交易被回滚返回错误，ctx 取消或超时时立即返回。
func (p *pendingTx) Wait(ctx context.Context) error {
	receipt, err := bind.WaitMined(ctx, p.client, p.tx)
	if err != nil {
		return fmt.Errorf("等待交易 %s 上链失败: %w", p.TxHash(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("交易 %s 执行被回滚", p.TxHash())
	}

	for p.confirmations > 0 {
		head, err := p.client.HeaderByNumber(ctx, nil)
		if err != nil {
			return fmt.Errorf("读取最新区块失败: %w", err)
		}
		if head.Number.Uint64() >= receipt.BlockNumber.Uint64()+uint64(p.confirmations) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(confirmPollInterval):
		}
	}
	return nil
}
