package work

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/bits"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"

	"github.com/gertjaap/stratum-go/logging"
	"github.com/gertjaap/stratum-go/stratum"
	"github.com/gertjaap/stratum-go/util"
)

// TemplateSource fetches raw getblocktemplate results.
type TemplateSource interface {
	GetBlockTemplate(ctx context.Context) (json.RawMessage, error)
}

// JobSink receives every job built from a new template.
type JobSink interface {
	Broadcast(n *stratum.Notify) error
}

type WorkManager struct {
	source         TemplateSource
	sink           JobSink
	payoutScript   []byte
	extraNonceSize int
	interval       time.Duration

	mu       sync.RWMutex
	current  *BlockTemplate
	nextJob  uint32
	coinbase map[string]*Coinbase
}

// NewWorkManager pays every job to payoutAddress, reserving extraNonceSize
// (extranonce1 plus extranonce2) bytes in the coinbase.
func NewWorkManager(source TemplateSource, sink JobSink, params *chaincfg.Params, payoutAddress string, extraNonceSize int, interval time.Duration) (*WorkManager, error) {
	addr, err := btcutil.DecodeAddress(payoutAddress, params)
	if err != nil {
		return nil, fmt.Errorf("invalid payout address %q: %v", payoutAddress, err)
	}
	if !addr.IsForNet(params) {
		return nil, fmt.Errorf("payout address %q is not for %s", payoutAddress, params.Name)
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &WorkManager{
		source:         source,
		sink:           sink,
		payoutScript:   script,
		extraNonceSize: extraNonceSize,
		interval:       interval,
		coinbase:       make(map[string]*Coinbase),
	}, nil
}

// GetLatestTemplate returns the most recent block template available.
func (wm *WorkManager) GetLatestTemplate() *BlockTemplate {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.current
}

// Coinbase returns the coinbase halves of the job with the given hex id.
func (wm *WorkManager) Coinbase(jobID string) (*Coinbase, bool) {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	cb, ok := wm.coinbase[jobID]
	return cb, ok
}

// WatchBlockTemplate polls the node until ctx is done.
func (wm *WorkManager) WatchBlockTemplate(ctx context.Context) {
	ticker := time.NewTicker(wm.interval)
	defer ticker.Stop()
	for {
		if err := wm.Refresh(ctx); err != nil {
			logging.Errorf("WORK: Error refreshing block template: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Refresh fetches one template and broadcasts a job when it differs from
// the current one. A new previous block makes it a clean job.
func (wm *WorkManager) Refresh(ctx context.Context) error {
	raw, err := wm.source.GetBlockTemplate(ctx)
	if err != nil {
		return err
	}
	var tmpl BlockTemplate
	if err := util.FastJSONUnmarshal(raw, &tmpl); err != nil {
		return fmt.Errorf("error decoding block template: %v", err)
	}

	wm.mu.RLock()
	prev := wm.current
	wm.mu.RUnlock()
	if prev != nil && prev.PreviousBlockHash == tmpl.PreviousBlockHash && prev.LongPollID == tmpl.LongPollID {
		return nil
	}
	clean := prev == nil || prev.PreviousBlockHash != tmpl.PreviousBlockHash
	if clean {
		logging.Infof("WORK: New block template received for height %d", tmpl.Height)
	}

	job, err := wm.BuildJob(&tmpl, clean)
	if err != nil {
		return err
	}
	wm.mu.Lock()
	wm.current = &tmpl
	wm.mu.Unlock()
	return wm.sink.Broadcast(job)
}

// BuildJob turns tmpl into a mining.notify job.
func (wm *WorkManager) BuildJob(tmpl *BlockTemplate, clean bool) (*stratum.Notify, error) {
	prevHash, err := chainhash.NewHashFromStr(tmpl.PreviousBlockHash)
	if err != nil {
		return nil, fmt.Errorf("invalid previousblockhash: %v", err)
	}
	nbits, err := stratum.ParseHexU32LE(tmpl.Bits)
	if err != nil {
		return nil, fmt.Errorf("invalid bits: %v", err)
	}
	txids := make([]chainhash.Hash, 0, len(tmpl.Transactions))
	for _, tx := range tmpl.Transactions {
		h, err := chainhash.NewHashFromStr(tx.TxID)
		if err != nil {
			return nil, fmt.Errorf("invalid txid %q: %v", tx.TxID, err)
		}
		txids = append(txids, *h)
	}
	cb, err := CreateCoinbase(tmpl, wm.payoutScript, wm.extraNonceSize)
	if err != nil {
		return nil, err
	}

	branch := MerkleBranch(txids)
	hashes := make([][]byte, len(branch))
	for i := range branch {
		hashes[i] = branch[i][:]
	}

	wm.mu.Lock()
	if clean {
		wm.coinbase = make(map[string]*Coinbase)
	}
	wm.nextJob++
	var id [4]byte
	binary.BigEndian.PutUint32(id[:], wm.nextJob)
	jobID := stratum.NewJobID(id[:])
	wm.coinbase[jobID.String()] = cb
	wm.mu.Unlock()

	// Header fields go out as the conventional big-endian hex, which the
	// little-endian wire codec reads as the byte reversed value.
	return stratum.NewNotify(
		jobID,
		stratum.NewPrevHash(stratumPrevHash(prevHash)),
		stratum.NewCoinBase1(cb.Part1),
		stratum.NewCoinBase2(cb.Part2),
		stratum.NewMerkleBranch(hashes...),
		stratum.NewVersion(bits.ReverseBytes32(tmpl.Version)),
		stratum.NewBits(nbits.Uint32()),
		stratum.NewTime(bits.ReverseBytes32(uint32(tmpl.CurTime))),
		clean,
	), nil
}
