package work

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	simdsha "github.com/minio/sha256-simd"
)

// DblSha256 is bitcoin's double sha256.
func DblSha256(b []byte) chainhash.Hash {
	first := simdsha.Sum256(b)
	return chainhash.Hash(simdsha.Sum256(first[:]))
}

func hashPair(a, b chainhash.Hash) chainhash.Hash {
	var buf [2 * chainhash.HashSize]byte
	copy(buf[:chainhash.HashSize], a[:])
	copy(buf[chainhash.HashSize:], b[:])
	return DblSha256(buf[:])
}

// MerkleRoot computes the bitcoin merkle root of hashes, duplicating the
// last hash of odd levels.
func MerkleRoot(hashes []chainhash.Hash) chainhash.Hash {
	if len(hashes) == 0 {
		return chainhash.Hash{}
	}
	level := append([]chainhash.Hash(nil), hashes...)
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]chainhash.Hash, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, hashPair(level[i], level[i+1]))
		}
		level = next
	}
	return level[0]
}

// MerkleBranch returns the sibling hashes a miner folds its coinbase txid
// through to reach the merkle root. The coinbase is always at index 0 and
// txids are the remaining transactions in block order.
func MerkleBranch(txids []chainhash.Hash) []chainhash.Hash {
	level := make([]chainhash.Hash, len(txids)+1)
	copy(level[1:], txids)

	var branch []chainhash.Hash
	for len(level) > 1 {
		branch = append(branch, level[1])
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]chainhash.Hash, 1, len(level)/2)
		for i := 2; i < len(level); i += 2 {
			next = append(next, hashPair(level[i], level[i+1]))
		}
		level = next
	}
	return branch
}

// stratumPrevHash renders h the way miners expect it in mining.notify:
// internal byte order with every 32-bit word byte swapped.
func stratumPrevHash(h *chainhash.Hash) []byte {
	out := make([]byte, chainhash.HashSize)
	for i := 0; i < chainhash.HashSize; i += 4 {
		binary.BigEndian.PutUint32(out[i:], binary.LittleEndian.Uint32(h[i:]))
	}
	return out
}
