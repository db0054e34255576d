package vault

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/dustvault/internal/account"
	"github.com/Mohsinsiddi/dustvault/internal/batch"
	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/contract"
	"github.com/Mohsinsiddi/dustvault/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
)

// Deploy creates the vault from the owner's EOA through the factory.
func (s *Service) Deploy(ctx context.Context) (common.Hash, error) {
	h, err := s.Account(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	st, err := s.opts.Accounts.Status(ctx, h)
	if err != nil {
		return common.Hash{}, err
	}
	if st.Deployed {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrAlreadyDeployed, h.Address.Hex())
	}
	strategy, err := s.opts.Accounts.Strategy(h.Kind)
	if err != nil {
		return common.Hash{}, err
	}
	initCode, err := strategy.InitCode(h.Owner, h.Index)
	if err != nil {
		return common.Hash{}, err
	}
	factory, calldata, err := account.SplitInitCode(initCode)
	if err != nil {
		return common.Hash{}, err
	}

	release, err := s.hold(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	defer release()

	s.log.Info("deploying vault", "vault", h.Address.Hex(), "kind", h.Kind, "factory", factory.Hex())
	return s.sendFromOwner(ctx, wallet.TxRequest{To: factory, Data: calldata})
}

// Deposit moves ETH (token nil) or an ERC-20 from the owner into the vault.
func (s *Service) Deposit(ctx context.Context, token *common.Address, amount *big.Int) (common.Hash, error) {
	if amount == nil || amount.Sign() <= 0 {
		return common.Hash{}, errors.New("deposit amount must be positive")
	}
	h, err := s.Account(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	bal, err := s.balance(ctx, token, h.Owner)
	if err != nil {
		return common.Hash{}, err
	}
	if bal.Cmp(amount) < 0 {
		return common.Hash{}, fmt.Errorf("%w: have %s, need %s", batch.ErrInsufficientBalance, bal, amount)
	}

	req := wallet.TxRequest{To: h.Address, Value: amount}
	if token != nil {
		req = wallet.TxRequest{To: *token, Data: contract.MustPack(contract.ERC20, "transfer", h.Address, amount)}
	}

	release, err := s.hold(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	defer release()
	return s.sendFromOwner(ctx, req)
}

// WithdrawRequest describes a withdrawal from the vault.
type WithdrawRequest struct {
	Token  *common.Address // nil = ETH
	Amount *big.Int        // nil = maximum
	To     common.Address  // zero = owner
}

// Withdraw sends ETH or an ERC-20 from the vault. A nil amount withdraws
// the maximum: the full token balance, or the ETH balance less the buffer.
func (s *Service) Withdraw(ctx context.Context, req WithdrawRequest) (*batch.Result, *big.Int, error) {
	h, err := s.Account(ctx)
	if err != nil {
		return nil, nil, err
	}
	to := req.To
	if to == (common.Address{}) {
		to = h.Owner
	}

	bal, err := s.balance(ctx, req.Token, h.Address)
	if err != nil {
		return nil, nil, err
	}
	amount := req.Amount
	if amount == nil {
		if req.Token == nil {
			amount = MaxWithdrawable(bal, s.opts.WithdrawBuffer)
		} else {
			amount = new(big.Int).Set(bal)
		}
	}
	if amount.Sign() <= 0 {
		return nil, nil, ErrNothingToWithdraw
	}
	if amount.Cmp(bal) > 0 {
		return nil, nil, fmt.Errorf("%w: vault has %s, requested %s", batch.ErrInsufficientBalance, bal, amount)
	}

	var b batch.Batch
	if req.Token == nil {
		b = batch.Batch{batch.TransferETH(to, amount)}
	} else {
		b = batch.Batch{batch.Transfer(*req.Token, to, amount)}
	}

	sub, err := s.submitter(h)
	if err != nil {
		return nil, nil, err
	}
	release, err := s.hold(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	res, err := sub.Submit(ctx, h, b)
	if err != nil {
		return nil, nil, err
	}
	return res, amount, nil
}

func (s *Service) balance(ctx context.Context, token *common.Address, holder common.Address) (*big.Int, error) {
	if token == nil {
		return s.opts.Client.GetBalance(ctx, holder)
	}
	return contract.BalanceOf(ctx, s.opts.Client, *token, holder)
}

// sendFromOwner sends an ordinary EOA transaction on the session chain and
// waits for it to confirm.
func (s *Service) sendFromOwner(ctx context.Context, req wallet.TxRequest) (common.Hash, error) {
	t := s.opts.Session.Transactor
	if t == nil {
		return common.Hash{}, fmt.Errorf("wallet %s cannot send transactions", s.Owner().Hex())
	}
	hash, err := batch.Send(ctx, t, s.opts.Chain.ID(s.opts.Mode), req, s.log)
	if err != nil {
		return common.Hash{}, err
	}
	s.log.Info("transaction submitted", "tx", hash.Hex())

	waitCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	receipt, err := s.opts.Client.WaitForReceipt(waitCtx, hash, s.opts.Interval)
	if err != nil {
		return hash, err
	}
	if !receipt.Succeeded() {
		reason := s.opts.Client.RevertReason(ctx, chain.CallMsg{From: t.Address(), To: req.To, Data: req.Data, Value: req.Value})
		return hash, &batch.RevertError{Reason: reason, Hash: hash}
	}
	return hash, nil
}
