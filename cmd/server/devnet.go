//go:build devnet

package main

import (
	"github.com/ethereum/go-ethereum/common"

	"verichain/internal/agent"
	"verichain/internal/agent/agenttest"
	"verichain/internal/ledger"
	"verichain/internal/ledger/ledgertest"
	httptransport "verichain/internal/transport/http"
)

// Identities of the in-process development ledger. The first one is an
// authorized issuer.
const (
	devIssuer    = "0x1111111111111111111111111111111111111111"
	devRecipient = "0x2222222222222222222222222222222222222222"
)

func devLedger() (agent.Provider, ledger.Factory, httptransport.AccountSelector, error) {
	provider := agenttest.New(agent.Network{Name: "devnet", ChainID: 1337}, devIssuer, devRecipient)
	chain := ledgertest.NewChain(common.HexToAddress(devIssuer))
	return provider, chain, provider, nil
}
