//go:build !devnet

package main

import (
	"errors"

	"verichain/internal/agent"
	"verichain/internal/ledger"
	httptransport "verichain/internal/transport/http"
)

func devLedger() (agent.Provider, ledger.Factory, httptransport.AccountSelector, error) {
	return nil, nil, nil, errors.New("LEDGER_RPC_URL is required; the in-process ledger is only built with -tags devnet")
}
