package work

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/gertjaap/stratum-go/stratum"
)

func foldBranch(h chainhash.Hash, branch []chainhash.Hash) chainhash.Hash {
	for _, b := range branch {
		h = hashPair(h, b)
	}
	return h
}

func testHashes(n int) []chainhash.Hash {
	out := make([]chainhash.Hash, n)
	for i := range out {
		out[i] = chainhash.DoubleHashH([]byte{byte(i)})
	}
	return out
}

func TestMerkleBranchFoldsToRoot(t *testing.T) {
	coinbase := chainhash.DoubleHashH([]byte("coinbase"))
	for n := 0; n <= 9; n++ {
		txids := testHashes(n)
		all := append([]chainhash.Hash{coinbase}, txids...)
		want := MerkleRoot(all)
		got := foldBranch(coinbase, MerkleBranch(txids))
		if got != want {
			t.Errorf("%d txs: folded root %s, want %s", n, got, want)
		}
	}
}

func TestMerkleBranchEmpty(t *testing.T) {
	if b := MerkleBranch(nil); len(b) != 0 {
		t.Fatalf("Expected empty branch for a coinbase only block, got %d", len(b))
	}
}

func TestStratumPrevHash(t *testing.T) {
	h, err := chainhash.NewHashFromStr("00000000000000000001" + strings.Repeat("0", 36) + "0a0b0c0d")
	if err != nil {
		t.Fatal(err)
	}
	got := hex.EncodeToString(stratumPrevHash(h))
	// Internal order starts 0d0c0b0a; each word is then reversed.
	if !strings.HasPrefix(got, "0a0b0c0d") {
		t.Fatalf("Unexpected stratum prevhash %s", got)
	}
}

func regtestAddress(t *testing.T) string {
	t.Helper()
	addr, err := btcutil.NewAddressPubKeyHash(make([]byte, 20), &chaincfg.RegressionNetParams)
	if err != nil {
		t.Fatal(err)
	}
	return addr.EncodeAddress()
}

func testTemplate() *BlockTemplate {
	tmpl := &BlockTemplate{
		Version:           0x20000000,
		PreviousBlockHash: strings.Repeat("00", 28) + "01020304",
		CoinbaseValue:     5000000000,
		LongPollID:        "a",
		CurTime:           0x5f000000,
		Bits:              "1d00ffff",
		Height:            101,
	}
	for _, h := range testHashes(3) {
		tmpl.Transactions = append(tmpl.Transactions, BlockTemplateTx{TxID: h.String(), Hash: h.String()})
	}
	return tmpl
}

type recordingSink struct {
	jobs []*stratum.Notify
}

func (s *recordingSink) Broadcast(n *stratum.Notify) error {
	s.jobs = append(s.jobs, n)
	return nil
}

func TestCreateCoinbaseSplit(t *testing.T) {
	tmpl := testTemplate()
	payout := []byte{0x51}
	cb, err := CreateCoinbase(tmpl, payout, 8)
	if err != nil {
		t.Fatal(err)
	}

	extraNonce := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(cb.Assemble(extraNonce))); err != nil {
		t.Fatalf("Assembled coinbase does not parse: %v", err)
	}
	if len(tx.TxIn) != 1 || tx.TxIn[0].PreviousOutPoint.Index != wire.MaxPrevOutIndex {
		t.Fatalf("Not a coinbase input: %+v", tx.TxIn)
	}
	if !bytes.Contains(tx.TxIn[0].SignatureScript, extraNonce) {
		t.Errorf("Extranonce missing from script %x", tx.TxIn[0].SignatureScript)
	}
	if len(tx.TxOut) != 1 || tx.TxOut[0].Value != tmpl.CoinbaseValue || !bytes.Equal(tx.TxOut[0].PkScript, payout) {
		t.Errorf("Unexpected outputs %+v", tx.TxOut)
	}
}

func TestCreateCoinbaseDefaultWitnessCommitment(t *testing.T) {
	tmpl := testTemplate()
	tmpl.DefaultWitnessCommitment = "6a24aa21a9ed" + strings.Repeat("ab", 32)
	cb, err := CreateCoinbase(tmpl, []byte{0x51}, 4)
	if err != nil {
		t.Fatal(err)
	}
	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(cb.Assemble(make([]byte, 4)))); err != nil {
		t.Fatal(err)
	}
	if len(tx.TxOut) != 2 || hex.EncodeToString(tx.TxOut[1].PkScript) != tmpl.DefaultWitnessCommitment {
		t.Fatalf("Witness commitment output missing: %+v", tx.TxOut)
	}
}

func TestCreateCoinbaseComputedWitnessCommitment(t *testing.T) {
	segwitTx := wire.NewMsgTx(2)
	segwitTx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{1}, 0), nil, wire.TxWitness{{1, 2, 3}}))
	segwitTx.AddTxOut(wire.NewTxOut(1000, []byte{0x51}))
	var buf bytes.Buffer
	if err := segwitTx.Serialize(&buf); err != nil {
		t.Fatal(err)
	}

	tmpl := testTemplate()
	tmpl.Transactions = []BlockTemplateTx{{
		Data: hex.EncodeToString(buf.Bytes()),
		TxID: segwitTx.TxHash().String(),
		Hash: segwitTx.WitnessHash().String(),
	}}
	script, err := witnessCommitmentScript(tmpl)
	if err != nil {
		t.Fatal(err)
	}
	// OP_RETURN, push 36, header, commitment
	if len(script) != 38 || script[0] != 0x6a || !bytes.Equal(script[2:6], witnessCommitmentHeader) {
		t.Fatalf("Unexpected commitment script %x", script)
	}
	want := hashPair(MerkleRoot([]chainhash.Hash{{}, segwitTx.WitnessHash()}), chainhash.Hash{})
	if !bytes.Equal(script[6:], want[:]) {
		t.Errorf("Commitment %x, want %x", script[6:], want[:])
	}
}

func TestCreateCoinbaseExtraNonceRange(t *testing.T) {
	if _, err := CreateCoinbase(testTemplate(), []byte{0x51}, 0); err == nil {
		t.Fatal("Expected error for zero extranonce size")
	}
}

type fakeSource struct {
	templates []*BlockTemplate
	calls     int
}

func (f *fakeSource) GetBlockTemplate(context.Context) (json.RawMessage, error) {
	t := f.templates[f.calls]
	if f.calls < len(f.templates)-1 {
		f.calls++
	}
	return json.Marshal(t)
}

func TestRefreshBroadcastsJobs(t *testing.T) {
	first := testTemplate()
	sameTip := testTemplate()
	sameTip.LongPollID = "b"
	nextTip := testTemplate()
	nextTip.PreviousBlockHash = strings.Repeat("00", 28) + "05060708"
	nextTip.LongPollID = "c"

	src := &fakeSource{templates: []*BlockTemplate{first, first, sameTip, nextTip}}
	sink := &recordingSink{}
	wm, err := NewWorkManager(src, sink, &chaincfg.RegressionNetParams, regtestAddress(t), 8, 0)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 4; i++ {
		if err := wm.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh %d: %v", i, err)
		}
	}
	if len(sink.jobs) != 3 {
		t.Fatalf("Expected 3 jobs (unchanged template skipped), got %d", len(sink.jobs))
	}
	clean := []bool{true, false, true}
	for i, j := range sink.jobs {
		if j.CleanJobs() != clean[i] {
			t.Errorf("Job %d: clean %v, want %v", i, j.CleanJobs(), clean[i])
		}
	}
	if got := wm.GetLatestTemplate(); got.LongPollID != "c" {
		t.Errorf("Latest template not tracked: %+v", got)
	}

	last := sink.jobs[2]
	if _, ok := wm.Coinbase(hex.EncodeToString(last.JobID())); !ok {
		t.Error("Coinbase of the latest job not retained")
	}
	if _, ok := wm.Coinbase(hex.EncodeToString(sink.jobs[0].JobID())); ok {
		t.Error("Clean job should have dropped earlier coinbases")
	}
}

func TestBuildJobWireFields(t *testing.T) {
	wm, err := NewWorkManager(&fakeSource{}, &recordingSink{}, &chaincfg.RegressionNetParams, regtestAddress(t), 8, 0)
	if err != nil {
		t.Fatal(err)
	}
	job, err := wm.BuildJob(testTemplate(), true)
	if err != nil {
		t.Fatal(err)
	}
	b, err := job.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	var params []json.RawMessage
	if err := json.Unmarshal(b, &params); err != nil {
		t.Fatal(err)
	}
	if len(params) != 9 {
		t.Fatalf("Expected 9 notify params, got %d", len(params))
	}
	if string(params[5]) != `"20000000"` || string(params[6]) != `"1d00ffff"` || string(params[7]) != `"5f000000"` {
		t.Errorf("Unexpected header fields %s %s %s", params[5], params[6], params[7])
	}
	if len(job.MerkleBranch()) != 2 {
		t.Errorf("Expected a 2 hash branch for 3 transactions, got %d", len(job.MerkleBranch()))
	}
}

func TestNewWorkManagerRejectsForeignAddress(t *testing.T) {
	addr, err := btcutil.NewAddressPubKeyHash(make([]byte, 20), &chaincfg.MainNetParams)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewWorkManager(&fakeSource{}, &recordingSink{}, &chaincfg.RegressionNetParams, addr.EncodeAddress(), 8, 0); err == nil {
		t.Fatal("Expected mainnet address to be rejected on regtest")
	}
}

func TestDblSha256MatchesChainhash(t *testing.T) {
	data := []byte("stratum")
	if got, want := DblSha256(data), chainhash.DoubleHashH(data); got != want {
		t.Fatalf("DblSha256 %s, want %s", got, want)
	}
}
