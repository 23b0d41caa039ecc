package work

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// coinbaseTag is pushed after the extranonce in every coinbase script.
var coinbaseTag = []byte("/stratum-go/")

// Coinbase is a serialized coinbase transaction (without witness) split
// around the extranonce1+extranonce2 bytes a miner fills in.
type Coinbase struct {
	Part1 []byte
	Part2 []byte
}

// Assemble returns the full transaction for the given extranonce bytes.
func (c *Coinbase) Assemble(extraNonce []byte) []byte {
	tx := make([]byte, 0, len(c.Part1)+len(extraNonce)+len(c.Part2))
	tx = append(tx, c.Part1...)
	tx = append(tx, extraNonce...)
	return append(tx, c.Part2...)
}

// CreateCoinbase constructs the coinbase for tmpl paying the whole reward to
// payoutScript, reserving extraNonceSize bytes in the input script.
func CreateCoinbase(tmpl *BlockTemplate, payoutScript []byte, extraNonceSize int) (*Coinbase, error) {
	if extraNonceSize <= 0 || extraNonceSize >= txscript.OP_PUSHDATA1 {
		return nil, fmt.Errorf("extranonce size %d out of range", extraNonceSize)
	}

	heightScript, err := txscript.NewScriptBuilder().AddInt64(tmpl.Height).Script()
	if err != nil {
		return nil, err
	}
	flags, err := hex.DecodeString(tmpl.CoinbaseAux.Flags)
	if err != nil {
		return nil, fmt.Errorf("could not decode coinbaseaux flags: %v", err)
	}
	prefix := append(heightScript, flags...)

	var script []byte
	script = append(script, prefix...)
	script = append(script, byte(extraNonceSize))
	script = append(script, make([]byte, extraNonceSize)...)
	script = append(script, byte(len(coinbaseTag)))
	script = append(script, coinbaseTag...)
	if len(script) > 100 {
		return nil, errors.New("coinbase script exceeds 100 bytes")
	}

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, wire.MaxPrevOutIndex), script, nil))
	tx.AddTxOut(wire.NewTxOut(tmpl.CoinbaseValue, payoutScript))

	commitment, err := witnessCommitmentScript(tmpl)
	if err != nil {
		return nil, err
	}
	if commitment != nil {
		tx.AddTxOut(wire.NewTxOut(0, commitment))
	}

	var buf bytes.Buffer
	if err := tx.SerializeNoWitness(&buf); err != nil {
		return nil, err
	}
	raw := buf.Bytes()

	// version, input count, outpoint, script length, then the script up to
	// the extranonce push data.
	offset := 4 + 1 + 32 + 4 + wire.VarIntSerializeSize(uint64(len(script))) + len(prefix) + 1
	return &Coinbase{
		Part1: append([]byte(nil), raw[:offset]...),
		Part2: append([]byte(nil), raw[offset+extraNonceSize:]...),
	}, nil
}
