// check-vaults: derives the counterfactual vault address of every account
// kind for a set of owners, in parallel, and prints deployment state and ETH
// balance for each.
//
// Run from the module root:
//
//	go run ./scripts/check-vaults [-network base] [-mode testnet] [owner ...]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/dustvault/internal/account"
	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/config"
	"github.com/Mohsinsiddi/dustvault/internal/logging"
)

// ── config ────────────────────────────────────────────────────────────────────

var defaultOwners = []string{
	"0x802D8097eC1D49808F3c2c866020442891adde57",
	"0x315a352720E52EaDCB62f5e0879D5Fea82B959A4",
}

var kinds = []account.Kind{account.KindCoinbase, account.KindSimple, account.KindSafe}

const rpcTimeout = 12 * time.Second

// ── types ─────────────────────────────────────────────────────────────────────

type result struct {
	owner   string
	kind    account.Kind
	vault   string
	state   string
	balance string
	err     string
}

// ── main ──────────────────────────────────────────────────────────────────────

func main() {
	network := flag.String("network", "base", "chain name")
	mode := flag.String("mode", "mainnet", "mainnet or testnet")
	index := flag.Uint64("index", 0, "account index")
	flag.Parse()

	c, err := chain.NewRegistry().GetByName(*network)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rpcs := c.RPCs(*mode)
	if len(rpcs) == 0 {
		fmt.Fprintf(os.Stderr, "%s has no %s RPCs\n", c.Name, *mode)
		os.Exit(1)
	}
	client := chain.NewEVMClient(rpcs[0])
	resolver := account.NewResolver(client, contracts(), account.KindAuto, logging.Discard())

	owners := flag.Args()
	if len(owners) == 0 {
		owners = defaultOwners
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []result
	)
	for _, owner := range owners {
		for _, k := range kinds {
			wg.Add(1)
			go func(owner string, k account.Kind) {
				defer wg.Done()
				r := check(resolver, client, common.HexToAddress(owner), k, *index)
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			}(owner, k)
		}
	}
	wg.Wait()

	fmt.Printf("%s · %s\n\n", c.Label(*mode), rpcs[0])
	printTable(results)
}

func contracts() account.Contracts {
	addr := func(name string) common.Address { return common.HexToAddress(config.DefaultContracts[name]) }
	return account.Contracts{
		EntryPoint:       addr(config.ContractEntryPoint),
		CoinbaseFactory:  addr(config.ContractCoinbaseFactory),
		SimpleFactory:    addr(config.ContractSimpleFactory),
		SafeProxyFactory: addr(config.ContractSafeFactory),
		SafeSingleton:    addr(config.ContractSafeSingleton),
		Safe4337Module:   addr(config.ContractSafeModule),
		SafeModuleSetup:  addr(config.ContractSafeModuleSetup),
		MultiSend:        addr(config.ContractMultiSend),
	}
}

func check(resolver *account.Resolver, client *chain.EVMClient, owner common.Address, k account.Kind, index uint64) result {
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	r := result{owner: shortAddr(owner.Hex()), kind: k, vault: "-", state: "-", balance: "-"}
	s, err := resolver.Strategy(k)
	if err != nil {
		r.err = shortErr(err)
		return r
	}
	addr, err := s.Address(ctx, owner, index)
	if err != nil {
		r.err = shortErr(err)
		return r
	}
	r.vault = addr.Hex()

	code, err := client.GetCode(ctx, addr)
	if err != nil {
		r.err = shortErr(err)
		return r
	}
	r.state = "counterfactual"
	if len(code) > 0 {
		r.state = "deployed"
	}
	bal, err := client.GetBalance(ctx, addr)
	if err != nil {
		r.err = shortErr(err)
		return r
	}
	r.balance = trimZeros(chain.WeiToETH(bal))
	return r
}

// ── output ────────────────────────────────────────────────────────────────────

func printTable(results []result) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.owner != b.owner {
			return a.owner < b.owner
		}
		return a.kind < b.kind
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OWNER\tKIND\tVAULT\tSTATE\tETH\tNOTE")
	fmt.Fprintln(w, strings.Repeat("-", 14)+"\t"+
		strings.Repeat("-", 8)+"\t"+
		strings.Repeat("-", 42)+"\t"+
		strings.Repeat("-", 14)+"\t"+
		strings.Repeat("-", 12)+"\t"+
		strings.Repeat("-", 12))

	last := ""
	for _, r := range results {
		if r.owner != last {
			if last != "" {
				fmt.Fprintln(w, "\t\t\t\t\t")
			}
			last = r.owner
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.owner, r.kind, r.vault, r.state, r.balance, r.err)
	}
	w.Flush()
}

// ── helpers ───────────────────────────────────────────────────────────────────

func shortAddr(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

func shortErr(err error) string {
	s := err.Error()
	if len(s) > 30 {
		return s[:30] + "…"
	}
	return s
}

// trimZeros removes trailing zeros after the decimal point.
func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" {
		return "0"
	}
	return s
}
