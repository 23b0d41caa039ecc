package stratum

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/gertjaap/stratum-go/util"
)

// Every message below is a positional tuple on the wire. Field order in the
// marshal and unmarshal calls is the wire order and must not change.

var (
	_ RequestMessage = (*Subscribe)(nil)
	_ RequestMessage = (*Authorize)(nil)
	_ RequestMessage = (*SetDifficulty)(nil)
	_ RequestMessage = (*Notify)(nil)
	_ RequestMessage = (*Submit)(nil)
	_ ResultMessage  = (*SubscribeResult)(nil)
	_ ResultMessage  = (*BooleanResult)(nil)
)

// JobID identifies a job handed out with mining.notify.
type JobID struct{ HexBytes }

func NewJobID(b []byte) JobID { return JobID{HexBytes(b)} }

// PrevHash is the previous block hash as transmitted by the pool.
type PrevHash struct{ HexBytes }

func NewPrevHash(b []byte) PrevHash { return PrevHash{HexBytes(b)} }

// CoinBase1 is the leading part of the coinbase transaction.
type CoinBase1 struct{ HexBytes }

func NewCoinBase1(b []byte) CoinBase1 { return CoinBase1{HexBytes(b)} }

// CoinBase2 is the trailing part of the coinbase transaction.
type CoinBase2 struct{ HexBytes }

func NewCoinBase2(b []byte) CoinBase2 { return CoinBase2{HexBytes(b)} }

// ExtraNonce2 is the miner-chosen part of the coinbase nonce space.
type ExtraNonce2 struct{ HexBytes }

func NewExtraNonce2(b []byte) ExtraNonce2 { return ExtraNonce2{HexBytes(b)} }

// MerkleBranch lists the transaction hashes leading to the coinbase.
type MerkleBranch []HexBytes

func NewMerkleBranch(hashes ...[]byte) MerkleBranch {
	mb := make(MerkleBranch, 0, len(hashes))
	for _, h := range hashes {
		mb = append(mb, HexBytes(h))
	}
	return mb
}

func (mb MerkleBranch) MarshalJSON() ([]byte, error) {
	if mb == nil {
		return []byte("[]"), nil
	}
	return util.FastJSONMarshal([]HexBytes(mb))
}

// Hashes converts every branch entry into a chainhash.Hash. Entries that
// are not 32 bytes long are an error.
func (mb MerkleBranch) Hashes() ([]chainhash.Hash, error) {
	out := make([]chainhash.Hash, 0, len(mb))
	for i, b := range mb {
		h, err := chainhash.NewHash(b)
		if err != nil {
			return nil, fmt.Errorf("merkle branch %d: %w", i, err)
		}
		out = append(out, *h)
	}
	return out, nil
}

// Version is the block header version field.
type Version struct{ HexU32LE }

func NewVersion(v uint32) Version { return Version{HexU32LE(v)} }

// Bits is the compact network difficulty target.
type Bits struct{ HexU32LE }

func NewBits(v uint32) Bits { return Bits{HexU32LE(v)} }

// Time is the block header timestamp.
type Time struct{ HexU32LE }

func NewTime(v uint32) Time { return Time{HexU32LE(v)} }

// Nonce is the block header nonce.
type Nonce struct{ HexU32LE }

func NewNonce(v uint32) Nonce { return Nonce{HexU32LE(v)} }

// UserName is the "account.worker" login of a miner.
type UserName string

// Subscribe is mining.subscribe: (agent signature, extranonce1 to resume,
// pool host, pool port), each optional.
type Subscribe struct {
	AgentSignature *string
	ExtraNonce1    *ExtraNonce1
	Host           *string
	Port           *string
}

func (Subscribe) Method() Method { return MethodSubscribe }

func (m Subscribe) MarshalJSON() ([]byte, error) {
	return marshalTuple(m.AgentSignature, m.ExtraNonce1, m.Host, m.Port)
}

// UnmarshalJSON accepts 0 to 4 params; miners commonly leave trailing
// optional members out.
func (m *Subscribe) UnmarshalJSON(data []byte) error {
	var out Subscribe
	if err := unmarshalTuple(data, 0, &out.AgentSignature, &out.ExtraNonce1, &out.Host, &out.Port); err != nil {
		return err
	}
	*m = out
	return nil
}

func (m *Subscribe) Accept(f Frame, h Handler) { h.VisitSubscribe(f, m) }

// Subscription is one (method class, subscription id) pair of a
// subscribe result.
type Subscription struct {
	Class string
	ID    string
}

func (s Subscription) MarshalJSON() ([]byte, error) {
	return marshalTuple(s.Class, s.ID)
}

func (s *Subscription) UnmarshalJSON(data []byte) error {
	var out Subscription
	if err := unmarshalTuple(data, 2, &out.Class, &out.ID); err != nil {
		return err
	}
	*s = out
	return nil
}

// SubscribeResult answers mining.subscribe: (subscriptions, extranonce1,
// extranonce2 size in bytes).
type SubscribeResult struct {
	Subscriptions   []Subscription
	ExtraNonce1     ExtraNonce1
	ExtraNonce2Size int
}

func (SubscribeResult) isResult() {}

func (m SubscribeResult) MarshalJSON() ([]byte, error) {
	subs := m.Subscriptions
	if subs == nil {
		subs = []Subscription{}
	}
	return marshalTuple(subs, m.ExtraNonce1, m.ExtraNonce2Size)
}

func (m *SubscribeResult) UnmarshalJSON(data []byte) error {
	var out SubscribeResult
	if err := unmarshalTuple(data, 3, &out.Subscriptions, &out.ExtraNonce1, &out.ExtraNonce2Size); err != nil {
		return err
	}
	if out.Subscriptions == nil {
		out.Subscriptions = []Subscription{}
	}
	if out.ExtraNonce2Size < 0 {
		return &ShapeError{Index: 2, Want: 3, Got: 3, Err: fmt.Errorf("negative extranonce2 size %d", out.ExtraNonce2Size)}
	}
	*m = out
	return nil
}

func (m *SubscribeResult) Accept(f Frame, h Handler) { h.VisitSubscribeResult(f, m) }

// BooleanResult is the bare true/false acknowledgement answering
// mining.authorize and mining.submit.
type BooleanResult bool

func NewBooleanResult(v bool) *BooleanResult {
	b := BooleanResult(v)
	return &b
}

func (BooleanResult) isResult() {}

func (b BooleanResult) Value() bool { return bool(b) }

func (b BooleanResult) MarshalJSON() ([]byte, error) {
	if b {
		return []byte("true"), nil
	}
	return []byte("false"), nil
}

func (b *BooleanResult) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true":
		*b = true
	case "false":
		*b = false
	default:
		return &ShapeError{Index: -1, Want: 1, Got: 1, Err: fmt.Errorf("want boolean, got %s", data)}
	}
	return nil
}

func (b *BooleanResult) Accept(f Frame, h Handler) { h.VisitBooleanResult(f, b) }

// Authorize is mining.authorize: (worker name, password).
type Authorize struct {
	Name     string
	Password string
}

func (Authorize) Method() Method { return MethodAuthorize }

// Account is the part of Name before the first '.'.
func (m *Authorize) Account() string {
	account, _, _ := strings.Cut(m.Name, ".")
	return account
}

// Worker is the part of Name after the first '.', empty if there is none.
func (m *Authorize) Worker() string {
	_, worker, _ := strings.Cut(m.Name, ".")
	return worker
}

func (m Authorize) MarshalJSON() ([]byte, error) {
	return marshalTuple(m.Name, m.Password)
}

func (m *Authorize) UnmarshalJSON(data []byte) error {
	var out Authorize
	if err := unmarshalTuple(data, 2, &out.Name, &out.Password); err != nil {
		return err
	}
	*m = out
	return nil
}

func (m *Authorize) Accept(f Frame, h Handler) { h.VisitAuthorize(f, m) }

// SetDifficulty is mining.set_difficulty. The params stay a one element
// array on the wire: [difficulty].
type SetDifficulty struct {
	Difficulty float64
}

func (SetDifficulty) Method() Method { return MethodSetDifficulty }

func (m SetDifficulty) MarshalJSON() ([]byte, error) {
	return marshalTuple(m.Difficulty)
}

func (m *SetDifficulty) UnmarshalJSON(data []byte) error {
	var out SetDifficulty
	if err := unmarshalTuple(data, 1, &out.Difficulty); err != nil {
		return err
	}
	*m = out
	return nil
}

func (m *SetDifficulty) Accept(f Frame, h Handler) { h.VisitSetDifficulty(f, m) }

// Notify is mining.notify: (job id, prev hash, coinbase1, coinbase2,
// merkle branch, version, bits, time, clean jobs).
type Notify struct {
	jobID        JobID
	prevHash     PrevHash
	coinBase1    CoinBase1
	coinBase2    CoinBase2
	merkleBranch MerkleBranch
	version      Version
	bits         Bits
	time         Time
	cleanJobs    bool
}

func NewNotify(jobID JobID, prevHash PrevHash, coinBase1 CoinBase1, coinBase2 CoinBase2,
	merkleBranch MerkleBranch, version Version, bits Bits, time Time, cleanJobs bool) *Notify {
	if merkleBranch == nil {
		merkleBranch = MerkleBranch{}
	}
	return &Notify{
		jobID:        jobID,
		prevHash:     prevHash,
		coinBase1:    coinBase1,
		coinBase2:    coinBase2,
		merkleBranch: merkleBranch,
		version:      version,
		bits:         bits,
		time:         time,
		cleanJobs:    cleanJobs,
	}
}

func (Notify) Method() Method { return MethodNotify }

func (m *Notify) JobID() []byte              { return m.jobID.Bytes() }
func (m *Notify) PrevHash() []byte           { return m.prevHash.Bytes() }
func (m *Notify) CoinBase1() []byte          { return m.coinBase1.Bytes() }
func (m *Notify) CoinBase2() []byte          { return m.coinBase2.Bytes() }
func (m *Notify) MerkleBranch() MerkleBranch { return m.merkleBranch }
func (m *Notify) Version() uint32            { return m.version.Uint32() }
func (m *Notify) Bits() uint32               { return m.bits.Uint32() }
func (m *Notify) Time() uint32               { return m.time.Uint32() }
func (m *Notify) CleanJobs() bool            { return m.cleanJobs }

// PrevBlockHash returns the previous block hash bytes, as transmitted, as a
// chainhash.Hash.
func (m *Notify) PrevBlockHash() (*chainhash.Hash, error) {
	return chainhash.NewHash(m.prevHash.Bytes())
}

func (m Notify) MarshalJSON() ([]byte, error) {
	return marshalTuple(m.jobID, m.prevHash, m.coinBase1, m.coinBase2, m.merkleBranch,
		m.version, m.bits, m.time, m.cleanJobs)
}

func (m *Notify) UnmarshalJSON(data []byte) error {
	var out Notify
	err := unmarshalTuple(data, 9, &out.jobID, &out.prevHash, &out.coinBase1, &out.coinBase2,
		&out.merkleBranch, &out.version, &out.bits, &out.time, &out.cleanJobs)
	if err != nil {
		return err
	}
	if out.merkleBranch == nil {
		out.merkleBranch = MerkleBranch{}
	}
	*m = out
	return nil
}

func (m *Notify) Accept(f Frame, h Handler) { h.VisitNotify(f, m) }

// Submit is mining.submit: (user name, job id, extranonce2, time, nonce,
// version).
type Submit struct {
	userName    UserName
	jobID       JobID
	extraNonce2 ExtraNonce2
	time        Time
	nonce       Nonce
	version     Version
}

func NewSubmit(userName UserName, jobID JobID, extraNonce2 ExtraNonce2, time Time, nonce Nonce, version Version) *Submit {
	return &Submit{
		userName:    userName,
		jobID:       jobID,
		extraNonce2: extraNonce2,
		time:        time,
		nonce:       nonce,
		version:     version,
	}
}

func (Submit) Method() Method { return MethodSubmit }

func (m *Submit) UserName() string    { return string(m.userName) }
func (m *Submit) JobID() []byte       { return m.jobID.Bytes() }
func (m *Submit) ExtraNonce2() []byte { return m.extraNonce2.Bytes() }
func (m *Submit) Time() uint32        { return m.time.Uint32() }
func (m *Submit) Nonce() uint32       { return m.nonce.Uint32() }
func (m *Submit) Version() uint32     { return m.version.Uint32() }

func (m Submit) MarshalJSON() ([]byte, error) {
	return marshalTuple(m.userName, m.jobID, m.extraNonce2, m.time, m.nonce, m.version)
}

func (m *Submit) UnmarshalJSON(data []byte) error {
	var out Submit
	err := unmarshalTuple(data, 6, &out.userName, &out.jobID, &out.extraNonce2, &out.time, &out.nonce, &out.version)
	if err != nil {
		return err
	}
	*m = out
	return nil
}

func (m *Submit) Accept(f Frame, h Handler) { h.VisitSubmit(f, m) }

func marshalTuple(fields ...any) ([]byte, error) {
	return util.FastJSONMarshal(fields)
}

// unmarshalTuple decodes a JSON array into fields by position. At least
// required elements must be present and no more than len(fields). Only
// pointer-typed fields (and raw JSON) may receive null.
func unmarshalTuple(data []byte, required int, fields ...any) error {
	var raw []json.RawMessage
	if isNull(data) {
		return &ShapeError{Index: -1, Want: len(fields), Err: fmt.Errorf("want array, got null")}
	}
	if err := util.FastJSONUnmarshal(data, &raw); err != nil {
		return &ShapeError{Index: -1, Want: len(fields), Err: fmt.Errorf("want array: %v", err)}
	}
	if len(raw) < required || len(raw) > len(fields) {
		return &ShapeError{Index: -1, Want: len(fields), Got: len(raw)}
	}
	for i, r := range raw {
		if isNull(r) {
			if !acceptsNull(fields[i]) {
				return &ShapeError{Index: i, Want: len(fields), Got: len(raw), Err: fmt.Errorf("null not allowed")}
			}
		}
		if err := util.FastJSONUnmarshal(r, fields[i]); err != nil {
			return &ShapeError{Index: i, Want: len(fields), Got: len(raw), Err: err}
		}
	}
	return nil
}

func acceptsNull(field any) bool {
	if _, ok := field.(*json.RawMessage); ok {
		return true
	}
	t := reflect.TypeOf(field)
	return t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Pointer
}
