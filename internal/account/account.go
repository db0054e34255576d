package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/logging"
	"github.com/Mohsinsiddi/dustvault/internal/userop"
	"github.com/Mohsinsiddi/dustvault/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
)

// Errors.
var (
	ErrNoSigner         = errors.New("no signer available")
	ErrInvalidOwner     = errors.New("factory rejected owner")
	ErrUnsupportedChain = errors.New("account factory is not deployed on this chain")
	ErrUnknownKind      = errors.New("unknown account kind")
	ErrRawHashSigning   = errors.New("signer cannot sign a raw hash")
	ErrBatchValue       = errors.New("account cannot send ETH inside a batch")
)

// Call is one call the account executes.
type Call struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// Handle identifies a resolved smart account.
type Handle struct {
	Address common.Address
	Kind    Kind
	Owner   common.Address
	Index   uint64
	Branch  string // detection branch that picked Kind
}

// Status is the on-chain state of an account at CheckedAt.
type Status struct {
	Deployed  bool
	Balance   *big.Int
	CheckedAt time.Time
}

// Contracts are the addresses the account kinds depend on.
type Contracts struct {
	EntryPoint       common.Address
	CoinbaseFactory  common.Address
	SimpleFactory    common.Address
	SafeProxyFactory common.Address
	SafeSingleton    common.Address
	Safe4337Module   common.Address
	SafeModuleSetup  common.Address
	MultiSend        common.Address
}

// Strategy implements one account kind.
type Strategy interface {
	Kind() Kind
	// Address derives the counterfactual address for {owner, index}.
	Address(ctx context.Context, owner common.Address, index uint64) (common.Address, error)
	// InitCode is factory ‖ deploy calldata, used while the account has no code.
	InitCode(owner common.Address, index uint64) ([]byte, error)
	// EncodeExecute encodes calls as the callData of a user operation.
	EncodeExecute(calls []Call) ([]byte, error)
	// EncodeOwnerExecute encodes calls for a transaction the owner sends to the account.
	EncodeOwnerExecute(owner common.Address, calls []Call) ([]byte, error)
	SignUserOp(ctx context.Context, signer wallet.SignerAdapter, op *userop.Operation, entryPoint common.Address, chainID int64) ([]byte, error)
	DummySignature() []byte
}

// Resolver maps an owner to its smart account. A configured kind wins over
// connector detection.
type Resolver struct {
	client     *chain.EVMClient
	contracts  Contracts
	kind       Kind
	log        *slog.Logger
	strategies map[Kind]Strategy

	mu        sync.Mutex
	factories map[common.Address]bool
}

// NewResolver creates a resolver. kind may be KindAuto.
func NewResolver(client *chain.EVMClient, contracts Contracts, kind Kind, log *slog.Logger) *Resolver {
	if kind == "" {
		kind = KindAuto
	}
	return &Resolver{
		client:    client,
		contracts: contracts,
		kind:      kind,
		log:       logging.Or(log),
		strategies: map[Kind]Strategy{
			KindCoinbase: &coinbaseAccount{client: client, factory: contracts.CoinbaseFactory},
			KindSimple:   &simpleAccount{client: client, factory: contracts.SimpleFactory},
			KindSafe:     newSafeAccount(client, contracts),
		},
		factories: make(map[common.Address]bool),
	}
}

// Contracts returns the configured addresses.
func (r *Resolver) Contracts() Contracts { return r.contracts }

// Strategy returns the implementation of k.
func (r *Resolver) Strategy(k Kind) (Strategy, error) {
	s, ok := r.strategies[k]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	return s, nil
}

// ChooseKind returns the configured kind, or runs detection when auto.
func (r *Resolver) ChooseKind(c wallet.Connector) Detection {
	if r.kind != KindAuto {
		return Detection{Kind: r.kind, Branch: BranchConfigured}
	}
	return Detect(c)
}

// Resolve derives the smart account of signer's address.
func (r *Resolver) Resolve(ctx context.Context, signer wallet.SignerAdapter, c wallet.Connector, index uint64) (*Handle, error) {
	if signer == nil {
		return nil, ErrNoSigner
	}
	d := r.ChooseKind(c)
	r.log.Info("account kind selected", "kind", d.Kind, "branch", d.Branch, "connector", c.ID)

	s, err := r.Strategy(d.Kind)
	if err != nil {
		return nil, err
	}
	if err := r.ensureFactory(ctx, d.Kind); err != nil {
		return nil, err
	}
	owner := signer.Address()
	addr, err := s.Address(ctx, owner, index)
	if err != nil {
		if _, ok := chain.AsRPCError(err); ok {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOwner, err)
		}
		return nil, fmt.Errorf("deriving %s account: %w", d.Kind, err)
	}
	return &Handle{Address: addr, Kind: d.Kind, Owner: owner, Index: index, Branch: d.Branch}, nil
}

func (r *Resolver) factoryFor(k Kind) common.Address {
	switch k {
	case KindCoinbase:
		return r.contracts.CoinbaseFactory
	case KindSafe:
		return r.contracts.SafeProxyFactory
	default:
		return r.contracts.SimpleFactory
	}
}

// ensureFactory checks once per factory that it has code on this chain.
func (r *Resolver) ensureFactory(ctx context.Context, k Kind) error {
	factory := r.factoryFor(k)
	r.mu.Lock()
	ok := r.factories[factory]
	r.mu.Unlock()
	if ok {
		return nil
	}
	code, err := r.client.GetCode(ctx, factory)
	if err != nil {
		return fmt.Errorf("checking %s factory: %w", k, err)
	}
	if len(code) == 0 {
		return fmt.Errorf("%w: %s factory %s", ErrUnsupportedChain, k, factory.Hex())
	}
	r.mu.Lock()
	r.factories[factory] = true
	r.mu.Unlock()
	return nil
}

// Status reads deployment and ETH balance now. Nothing is cached.
func (r *Resolver) Status(ctx context.Context, h *Handle) (*Status, error) {
	code, err := r.client.GetCode(ctx, h.Address)
	if err != nil {
		return nil, fmt.Errorf("reading account code: %w", err)
	}
	bal, err := r.client.GetBalance(ctx, h.Address)
	if err != nil {
		return nil, fmt.Errorf("reading account balance: %w", err)
	}
	return &Status{Deployed: len(code) > 0, Balance: bal, CheckedAt: time.Now()}, nil
}

// SplitInitCode separates initCode into the factory and its calldata.
func SplitInitCode(initCode []byte) (common.Address, []byte, error) {
	if len(initCode) < common.AddressLength+4 {
		return common.Address{}, nil, fmt.Errorf("init code too short: %d bytes", len(initCode))
	}
	return common.BytesToAddress(initCode[:common.AddressLength]), initCode[common.AddressLength:], nil
}

func withFactory(factory common.Address, calldata []byte) []byte {
	return append(factory.Bytes(), calldata...)
}

func value(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// dummyECDSA is a well-formed 65-byte signature used for gas estimation.
var dummyECDSA = common.FromHex("0xfffffffffffffffffffffffffffffff0000000000000000000000000000000007aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa1c")
