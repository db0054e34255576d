package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Caller performs read-only calls against one contract.
type Caller struct {
	client *chain.EVMClient
	abi    abi.ABI
	name   string
	addr   common.Address
}

// NewCaller binds a builtin ABI to an address.
func NewCaller(client *chain.EVMClient, name string, addr common.Address) *Caller {
	return &Caller{client: client, abi: Builtin(name), name: name, addr: addr}
}

// Address returns the bound contract address.
func (c *Caller) Address() common.Address { return c.addr }

// Call packs args, performs eth_call and unpacks the outputs.
func (c *Caller) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s.%s: %w", c.name, method, err)
	}
	out, err := c.client.CallContract(ctx, chain.CallMsg{To: c.addr, Data: data})
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", c.name, method, err)
	}
	vals, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpacking %s.%s: %w", c.name, method, err)
	}
	return vals, nil
}

// CallBig calls a method returning a single uint.
func (c *Caller) CallBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	vals, err := c.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := first(vals).(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s.%s: unexpected output %T", c.name, method, first(vals))
	}
	return v, nil
}

// CallAddress calls a method returning a single address.
func (c *Caller) CallAddress(ctx context.Context, method string, args ...interface{}) (common.Address, error) {
	vals, err := c.Call(ctx, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	v, ok := first(vals).(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s.%s: unexpected output %T", c.name, method, first(vals))
	}
	return v, nil
}

// CallBytes calls a method returning a single bytes value.
func (c *Caller) CallBytes(ctx context.Context, method string, args ...interface{}) ([]byte, error) {
	vals, err := c.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := first(vals).([]byte)
	if !ok {
		return nil, fmt.Errorf("%s.%s: unexpected output %T", c.name, method, first(vals))
	}
	return v, nil
}

func first(vals []interface{}) interface{} {
	if len(vals) == 0 {
		return nil
	}
	return vals[0]
}
