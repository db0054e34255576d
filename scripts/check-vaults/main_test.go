package main

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/Mohsinsiddi/dustvault/internal/account"
	"github.com/Mohsinsiddi/dustvault/internal/logging"
)

func TestCheckUnknownKindKeepsPlaceholders(t *testing.T) {
	resolver := account.NewResolver(nil, contracts(), account.KindAuto, logging.Discard())
	owner := common.HexToAddress(defaultOwners[0])

	r := check(resolver, nil, owner, account.Kind("bogus"), 0)
	assert.Equal(t, "-", r.vault)
	assert.Equal(t, "-", r.state)
	assert.Equal(t, "-", r.balance)
	assert.NotEmpty(t, r.err)
	assert.Equal(t, shortAddr(owner.Hex()), r.owner)
}
