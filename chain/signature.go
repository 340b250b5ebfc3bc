package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidSignature is returned when no known byte layout yields a valid
// recovery id. It is not retryable.
var ErrInvalidSignature = errors.New("invalid signature")

const signatureLength = 65

// ECSignature is an Ethereum recoverable signature with V in {27, 28}
type ECSignature struct {
	V uint8       `json:"v"`
	R common.Hash `json:"r"`
	S common.Hash `json:"s"`
}

// SignatureLayout names a byte order a signing client may use
type SignatureLayout int

const (
	// LayoutRSV is r||s||v, the layout of eth_sign and personal_sign on most nodes.
	LayoutRSV SignatureLayout = iota
	// LayoutVRS is v||r||s, emitted by some older clients. Raw v may be a 0/1 recovery id.
	LayoutVRS
)

func (l SignatureLayout) String() string {
	switch l {
	case LayoutRSV:
		return "rsv"
	case LayoutVRS:
		return "vrs"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

// parseOrder is the order layouts are attempted in. The bytes alone cannot
// tell the layouts apart, so each candidate is parsed and validated.
var parseOrder = []SignatureLayout{LayoutRSV, LayoutVRS}

// ParseSignatureHex decodes a 0x-prefixed signature and parses it with ParseSignature
func ParseSignatureHex(signature string) (*ECSignature, error) {
	raw, err := hexutil.Decode(strings.TrimSpace(signature))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return ParseSignature(raw)
}

// ParseSignature recovers a canonical signature from bytes in either the
// r||s||v or the v||r||s layout.
func ParseSignature(raw []byte) (*ECSignature, error) {
	if len(raw) != signatureLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, signatureLength, len(raw))
	}

	for _, layout := range parseOrder {
		sig := parseWithLayout(raw, layout)
		if isValidV(sig.V) {
			return sig, nil
		}
	}

	return nil, ErrInvalidSignature
}

func parseWithLayout(raw []byte, layout SignatureLayout) *ECSignature {
	sig := &ECSignature{}
	switch layout {
	case LayoutRSV:
		sig.R = common.BytesToHash(raw[0:32])
		sig.S = common.BytesToHash(raw[32:64])
		sig.V = raw[64]
	case LayoutVRS:
		sig.V = raw[0]
		if sig.V < 27 {
			sig.V += 27
		}
		sig.R = common.BytesToHash(raw[1:33])
		sig.S = common.BytesToHash(raw[33:65])
	}
	return sig
}

func isValidV(v uint8) bool {
	return v == 27 || v == 28
}

// Bytes returns the signature as r||s||v with v in {27, 28}
func (s ECSignature) Bytes() []byte {
	out := make([]byte, 0, signatureLength)
	out = append(out, s.R.Bytes()...)
	out = append(out, s.S.Bytes()...)
	return append(out, s.V)
}

// Hex returns the r||s||v encoding as 0x-prefixed hex
func (s ECSignature) Hex() string {
	return hexutil.Encode(s.Bytes())
}

// RecoverAddress returns the address that produced sig over hash
func RecoverAddress(hash common.Hash, sig ECSignature) (common.Address, error) {
	if !isValidV(sig.V) {
		return common.Address{}, ErrInvalidSignature
	}

	raw := sig.Bytes()
	raw[64] -= 27

	pub, err := crypto.SigToPub(hash.Bytes(), raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifySignature reports whether sig over hash was produced by address
func VerifySignature(hash common.Hash, sig ECSignature, address string) bool {
	recovered, err := RecoverAddress(hash, sig)
	if err != nil {
		return false
	}
	return strings.EqualFold(recovered.Hex(), address)
}
