package work

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

var witnessCommitmentHeader = []byte{0xaa, 0x21, 0xa9, 0xed}

// witnessCommitmentScript returns the OP_RETURN script committing to the
// wtxids of tmpl, or nil when no transaction carries witness data. The
// node's default_witness_commitment is used when present.
func witnessCommitmentScript(tmpl *BlockTemplate) ([]byte, error) {
	if tmpl.DefaultWitnessCommitment != "" {
		script, err := hex.DecodeString(tmpl.DefaultWitnessCommitment)
		if err != nil {
			return nil, fmt.Errorf("could not decode default_witness_commitment: %v", err)
		}
		return script, nil
	}

	segwit := false
	for _, tx := range tmpl.Transactions {
		if tx.HasWitness() {
			segwit = true
			break
		}
	}
	if !segwit {
		return nil, nil
	}

	// The coinbase wtxid is always all zeroes.
	wtxids := []chainhash.Hash{{}}
	for _, txTmpl := range tmpl.Transactions {
		txBytes, err := hex.DecodeString(txTmpl.Data)
		if err != nil {
			return nil, err
		}
		var msgTx wire.MsgTx
		if err := msgTx.Deserialize(bytes.NewReader(txBytes)); err != nil {
			return nil, err
		}
		wtxids = append(wtxids, msgTx.WitnessHash())
	}

	// The reserved value is the all zero coinbase witness.
	var reserved chainhash.Hash
	commitment := hashPair(MerkleRoot(wtxids), reserved)
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_RETURN).
		AddData(append(append([]byte{}, witnessCommitmentHeader...), commitment[:]...)).
		Script()
}
