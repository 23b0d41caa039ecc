package net

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/gertjaap/stratum-go/logging"
)

var ActiveNetwork Network

type Network struct {
	Name               string
	ChainParams        *chaincfg.Params
	DefaultStratumPort int
	RPCPort            int
}

var networks = map[string]Network{
	"bitcoin": {Name: "bitcoin", ChainParams: &chaincfg.MainNetParams, DefaultStratumPort: 3333, RPCPort: 8332},
	"testnet": {Name: "testnet", ChainParams: &chaincfg.TestNet3Params, DefaultStratumPort: 13333, RPCPort: 18332},
	"signet":  {Name: "signet", ChainParams: &chaincfg.SigNetParams, DefaultStratumPort: 23333, RPCPort: 38332},
	"regtest": {Name: "regtest", ChainParams: &chaincfg.RegressionNetParams, DefaultStratumPort: 33333, RPCPort: 18443},
}

// Lookup resolves a network name. testnet forces the test network of the
// named chain.
func Lookup(name string, testnet bool) (Network, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "mainnet" {
		name = "bitcoin"
	}
	if testnet && name == "bitcoin" {
		name = "testnet"
	}
	n, ok := networks[name]
	if !ok {
		return Network{}, fmt.Errorf("%s is currently not supported. See the README for supported networks", name)
	}
	return n, nil
}

func SetNetwork(name string, testnet bool) error {
	n, err := Lookup(name, testnet)
	if err != nil {
		logging.Errorf("%v", err)
		return err
	}
	ActiveNetwork = n
	return nil
}
