package stratum

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/gertjaap/stratum-go/util"
)

// HexBytes is a variable length byte string carried on the wire as an
// even-length hex string. Decoding is case-insensitive, encoding always
// produces lower case without a 0x prefix.
type HexBytes []byte

// ParseHexBytes decodes s, failing with ErrMalformedHex.
func ParseHexBytes(s string) (HexBytes, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedHex, s, err)
	}
	return HexBytes(b), nil
}

func (h HexBytes) Bytes() []byte {
	return []byte(h)
}

func (h HexBytes) String() string {
	return hex.EncodeToString(h)
}

func (h HexBytes) MarshalJSON() ([]byte, error) {
	return quoteHex(hex.EncodeToString(h)), nil
}

func (h *HexBytes) UnmarshalJSON(data []byte) error {
	s, err := unquoteHex(data)
	if err != nil {
		return err
	}
	b, err := ParseHexBytes(s)
	if err != nil {
		return err
	}
	*h = b
	return nil
}

// HexU32LE is a 32-bit unsigned integer carried as hex of its little-endian
// bytes: the value 1 goes on the wire as "01000000", and "00000001" reads
// back as 16777216. Block header fields (version, bits, time, nonce) use
// this representation.
type HexU32LE uint32

// ParseHexU32LE decodes exactly 8 hex digits, the four bytes read
// little-endian.
func ParseHexU32LE(s string) (HexU32LE, error) {
	if len(s) != 8 {
		return 0, fmt.Errorf("%w: %q: want 8 hex digits", ErrMalformedHex, s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedHex, s, err)
	}
	return HexU32LE(binary.LittleEndian.Uint32(b)), nil
}

func (v HexU32LE) Uint32() uint32 {
	return uint32(v)
}

func (v HexU32LE) String() string {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return hex.EncodeToString(b[:])
}

func (v HexU32LE) MarshalJSON() ([]byte, error) {
	return quoteHex(v.String()), nil
}

func (v *HexU32LE) UnmarshalJSON(data []byte) error {
	s, err := unquoteHex(data)
	if err != nil {
		return err
	}
	n, err := ParseHexU32LE(s)
	if err != nil {
		return err
	}
	*v = n
	return nil
}

// ExtraNonce1 is the session token handed out by the pool at subscription
// and echoed back by the miner in every submit. Its length fixes how many
// bytes of the coinbase the pool reserves for itself.
type ExtraNonce1 struct{ HexBytes }

func NewExtraNonce1(b []byte) ExtraNonce1 {
	return ExtraNonce1{HexBytes(b)}
}

func quoteHex(s string) []byte {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	out = append(out, s...)
	return append(out, '"')
}

func unquoteHex(data []byte) (string, error) {
	var s string
	if string(data) == "null" {
		return "", fmt.Errorf("%w: null where hex string expected", ErrMalformedHex)
	}
	if err := util.FastJSONUnmarshal(data, &s); err != nil {
		return "", fmt.Errorf("%w: expected string: %v", ErrMalformedHex, err)
	}
	return s, nil
}
