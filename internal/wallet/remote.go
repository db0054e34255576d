package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// RemoteSigner forwards signing and sending to a JSON-RPC wallet such as
// Frame or Clef. Wallet errors (including user rejection) are returned as-is.
type RemoteSigner struct {
	addr    common.Address
	rpc     *chain.RPCClient
	chainID int64
}

// NewRemoteSigner creates a signer for addr served at url.
func NewRemoteSigner(url string, addr common.Address, chainID int64) *RemoteSigner {
	return &RemoteSigner{addr: addr, rpc: chain.NewRPCClient(url), chainID: chainID}
}

func (r *RemoteSigner) Address() common.Address { return r.addr }

func (r *RemoteSigner) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	var sig hexutil.Bytes
	if err := r.rpc.Call(ctx, &sig, "personal_sign", hexutil.Encode(msg), r.addr.Hex()); err != nil {
		return nil, err
	}
	return sig, nil
}

func (r *RemoteSigner) SignTypedData(ctx context.Context, td apitypes.TypedData) ([]byte, error) {
	prepared, err := PrepareTypedData(td, r.chainID)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(prepared)
	if err != nil {
		return nil, fmt.Errorf("encoding typed data: %w", err)
	}
	var sig hexutil.Bytes
	if err := r.rpc.Call(ctx, &sig, "eth_signTypedData_v4", r.addr.Hex(), string(payload)); err != nil {
		return nil, err
	}
	return sig, nil
}

func (r *RemoteSigner) SignTransaction(context.Context, *types.Transaction) ([]byte, error) {
	return nil, ErrRawSigningUnsupported
}

func (r *RemoteSigner) ChainID(ctx context.Context) (int64, error) {
	var id hexutil.Big
	if err := r.rpc.Call(ctx, &id, "eth_chainId"); err != nil {
		return 0, err
	}
	return id.ToInt().Int64(), nil
}

func (r *RemoteSigner) SwitchChain(ctx context.Context, chainID int64) error {
	arg := map[string]string{"chainId": hexutil.EncodeBig(big.NewInt(chainID))}
	if err := r.rpc.Call(ctx, nil, "wallet_switchEthereumChain", arg); err != nil {
		return err
	}
	r.chainID = chainID
	return nil
}

func (r *RemoteSigner) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	arg := map[string]interface{}{
		"from": r.addr.Hex(),
		"to":   req.To.Hex(),
		"data": hexutil.Encode(req.Data),
	}
	if req.Value != nil {
		arg["value"] = (*hexutil.Big)(req.Value)
	}
	if req.Gas > 0 {
		arg["gas"] = hexutil.Uint64(req.Gas)
	}
	var hash common.Hash
	if err := r.rpc.Call(ctx, &hash, "eth_sendTransaction", arg); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}
