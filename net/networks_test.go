package net

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
)

func TestLookup(t *testing.T) {
	cases := []struct {
		name    string
		testnet bool
		want    *chaincfg.Params
	}{
		{"", false, &chaincfg.MainNetParams},
		{"Bitcoin", false, &chaincfg.MainNetParams},
		{"bitcoin", true, &chaincfg.TestNet3Params},
		{"regtest", false, &chaincfg.RegressionNetParams},
		{"signet", false, &chaincfg.SigNetParams},
	}
	for _, c := range cases {
		n, err := Lookup(c.name, c.testnet)
		if err != nil {
			t.Fatalf("Lookup(%q, %v): %v", c.name, c.testnet, err)
		}
		if n.ChainParams != c.want {
			t.Fatalf("Lookup(%q, %v) = %s, want %s", c.name, c.testnet, n.ChainParams.Name, c.want.Name)
		}
	}
}

func TestSetNetworkUnknown(t *testing.T) {
	if err := SetNetwork("vertcoin", false); err == nil {
		t.Fatal("expected error for unsupported network")
	}
	if err := SetNetwork("regtest", false); err != nil {
		t.Fatal(err)
	}
	if ActiveNetwork.Name != "regtest" {
		t.Fatalf("active network %q", ActiveNetwork.Name)
	}
}
