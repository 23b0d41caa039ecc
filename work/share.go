package work

import (
	"encoding/hex"
	"fmt"
	"math/bits"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/gertjaap/stratum-go/logging"
	"github.com/gertjaap/stratum-go/stratum"
)

// maxNTimeRoll is how far past the job's time a miner may roll ntime.
const maxNTimeRoll = 2 * time.Hour

// ShareChecker rebuilds the block header of every submitted share from the
// coinbase the WorkManager kept for its job.
type ShareChecker struct {
	wm *WorkManager
}

var _ stratum.ShareValidator = (*ShareChecker)(nil)

func NewShareChecker(wm *WorkManager) *ShareChecker {
	return &ShareChecker{wm: wm}
}

// ValidateShare rejects shares for jobs the WorkManager no longer knows,
// shares whose ntime is outside the job's window, and shares whose header
// cannot be rebuilt. Proof of work is not checked.
func (sc *ShareChecker) ValidateShare(c *stratum.Client, job *stratum.Job, s *stratum.Submit) *stratum.StratumError {
	cb, ok := sc.wm.Coinbase(job.ID)
	if !ok {
		return stratum.NewJobNotFoundError()
	}
	jobTime := bits.ReverseBytes32(job.Notify.Time())
	ntime := bits.ReverseBytes32(s.Time())
	if ntime < jobTime || int64(ntime) > int64(jobTime)+int64(maxNTimeRoll/time.Second) {
		return stratum.NewOtherError("Ntime out of range")
	}

	header, err := shareHeader(job.Notify, cb, c.ExtraNonce1.Bytes(), s)
	if err != nil {
		logging.Warnf("WORK: Could not rebuild header for job %s: %v", job.ID, err)
		return stratum.NewOtherError("Invalid share")
	}
	logging.Debugf("WORK: Share %s from %s for job %s", header.BlockHash(), s.UserName(), job.ID)
	return nil
}

// shareHeader assembles the block header a miner hashed for s. Header
// fields travel as byte reversed values, see BuildJob.
func shareHeader(n *stratum.Notify, cb *Coinbase, extraNonce1 []byte, s *stratum.Submit) (*wire.BlockHeader, error) {
	extraNonce := append(append([]byte(nil), extraNonce1...), s.ExtraNonce2()...)
	root := DblSha256(cb.Assemble(extraNonce))
	branch, err := n.MerkleBranch().Hashes()
	if err != nil {
		return nil, err
	}
	for _, h := range branch {
		root = hashPair(root, h)
	}

	if len(n.PrevHash()) != chainhash.HashSize {
		return nil, fmt.Errorf("prevhash %s is not %d bytes", hex.EncodeToString(n.PrevHash()), chainhash.HashSize)
	}
	var stratumPrev chainhash.Hash
	copy(stratumPrev[:], n.PrevHash())
	var prev chainhash.Hash
	copy(prev[:], stratumPrevHash(&stratumPrev))

	return &wire.BlockHeader{
		Version:    int32(bits.ReverseBytes32(s.Version())),
		PrevBlock:  prev,
		MerkleRoot: root,
		Timestamp:  time.Unix(int64(bits.ReverseBytes32(s.Time())), 0),
		Bits:       bits.ReverseBytes32(n.Bits()),
		Nonce:      bits.ReverseBytes32(s.Nonce()),
	}, nil
}
