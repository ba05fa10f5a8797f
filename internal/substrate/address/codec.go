package address

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"

	"Agora/internal/core/networks"
)

const (
	accountIDLength = 32
	evmLength       = 20
	checksumLength  = 2

	// DefaultShortenChars is the number of characters kept at each end by Shorten
	DefaultShortenChars = 6
)

var ss58Preimage = []byte("SS58PRE")

// Canonical is the network-agnostic form of an account address.
// SS58 accounts are "0x" + lowercase hex of the 32-byte account id, EVM accounts
// are "0x" + lowercase hex of the 20-byte address.
type Canonical string

// String returns the canonical form
func (c Canonical) String() string { return string(c) }

// Bytes decodes the canonical form to raw account bytes
func (c Canonical) Bytes() ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(string(c), "0x"))
}

// InvalidError is returned for malformed addresses
type InvalidError struct {
	Address string
	Reason  string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid address %q: %s", e.Address, e.Reason)
}

// Codec canonicalizes and re-encodes addresses for registered networks
type Codec struct {
	networks *networks.Registry
}

// NewCodec creates a codec bound to a network registry
func NewCodec(registry *networks.Registry) *Codec {
	return &Codec{networks: registry}
}

// Canonicalize validates an address for the given network and returns its canonical form.
// SS58 networks accept any valid SS58 encoding (the prefix is not required to match the
// network, the same account renders under every prefix) and raw 0x-hex account ids.
func (c *Codec) Canonicalize(addr, network string) (Canonical, error) {
	n, err := c.networks.Lookup(network)
	if err != nil {
		return "", err
	}

	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", &InvalidError{Address: addr, Reason: "address cannot be empty"}
	}

	if n.AccountFormat == networks.FormatEVM {
		raw, err := decodeHex(addr, evmLength)
		if err != nil {
			return "", err
		}
		return Canonical("0x" + hex.EncodeToString(raw)), nil
	}

	if strings.HasPrefix(addr, "0x") {
		raw, err := decodeHex(addr, accountIDLength)
		if err != nil {
			return "", err
		}
		return Canonical("0x" + hex.EncodeToString(raw)), nil
	}

	accountID, _, err := DecodeSS58(addr)
	if err != nil {
		return "", err
	}
	return Canonical("0x" + hex.EncodeToString(accountID)), nil
}

// Encode renders a canonical address in the network's native encoding
func (c *Codec) Encode(canonical Canonical, network string) (string, error) {
	n, err := c.networks.Lookup(network)
	if err != nil {
		return "", err
	}

	raw, err := canonical.Bytes()
	if err != nil {
		return "", &InvalidError{Address: canonical.String(), Reason: "canonical form is not hex"}
	}

	if n.AccountFormat == networks.FormatEVM {
		if len(raw) != evmLength {
			return "", &InvalidError{Address: canonical.String(), Reason: "not an EVM account"}
		}
		return canonical.String(), nil
	}
	return EncodeSS58(raw, n.SS58Prefix)
}

// DecodeSS58 decodes an SS58 string into its account id and network prefix
func DecodeSS58(addr string) (accountID []byte, prefix uint16, err error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return nil, 0, &InvalidError{Address: addr, Reason: "not base58"}
	}
	if len(raw) < 2 {
		return nil, 0, &InvalidError{Address: addr, Reason: "too short"}
	}

	prefixLen := 1
	switch {
	case raw[0] < 64:
		prefix = uint16(raw[0])
	case raw[0] < 128:
		prefixLen = 2
		lower := (raw[0]&0x3f)<<2 | raw[1]>>6
		upper := raw[1] & 0x3f
		prefix = uint16(lower) | uint16(upper)<<8
	default:
		return nil, 0, &InvalidError{Address: addr, Reason: "reserved address prefix"}
	}

	if len(raw) != prefixLen+accountIDLength+checksumLength {
		return nil, 0, &InvalidError{Address: addr, Reason: fmt.Sprintf("unexpected length %d", len(raw))}
	}

	body := raw[:len(raw)-checksumLength]
	sum := ss58Checksum(body)
	if !bytes.Equal(sum[:checksumLength], raw[len(raw)-checksumLength:]) {
		return nil, 0, &InvalidError{Address: addr, Reason: "checksum mismatch"}
	}

	accountID = make([]byte, accountIDLength)
	copy(accountID, raw[prefixLen:prefixLen+accountIDLength])
	return accountID, prefix, nil
}

// EncodeSS58 encodes a 32-byte account id with the given network prefix
func EncodeSS58(accountID []byte, prefix uint16) (string, error) {
	if len(accountID) != accountIDLength {
		return "", &InvalidError{Address: hex.EncodeToString(accountID), Reason: "account id must be 32 bytes"}
	}
	if prefix > networks.MaxSS58Prefix {
		return "", fmt.Errorf("ss58 prefix %d out of range", prefix)
	}

	var body []byte
	if prefix < 64 {
		body = append(body, byte(prefix))
	} else {
		first := byte((prefix&0x00fc)>>2) | 0x40
		second := byte(prefix>>8) | byte((prefix&0x0003)<<6)
		body = append(body, first, second)
	}
	body = append(body, accountID...)

	sum := ss58Checksum(body)
	body = append(body, sum[:checksumLength]...)
	return base58.Encode(body), nil
}

// Shorten renders the first and last n characters of s joined with an ellipsis.
// Strings no longer than 2n are returned unchanged.
func Shorten(s string, n int) string {
	if n <= 0 {
		n = DefaultShortenChars
	}
	if len(s) <= 2*n {
		return s
	}
	return s[:n] + "..." + s[len(s)-n:]
}

func ss58Checksum(body []byte) [blake2b.Size]byte {
	payload := make([]byte, 0, len(ss58Preimage)+len(body))
	payload = append(payload, ss58Preimage...)
	payload = append(payload, body...)
	return blake2b.Sum512(payload)
}

func decodeHex(addr string, length int) ([]byte, error) {
	s := strings.ToLower(addr)
	if !strings.HasPrefix(s, "0x") {
		return nil, &InvalidError{Address: addr, Reason: "expected 0x-prefixed hex"}
	}
	raw, err := hex.DecodeString(s[2:])
	if err != nil {
		return nil, &InvalidError{Address: addr, Reason: "not hex"}
	}
	if len(raw) != length {
		return nil, &InvalidError{Address: addr, Reason: fmt.Sprintf("expected %d bytes, got %d", length, len(raw))}
	}
	return raw, nil
}

// CanonicalAny canonicalizes an address without a network: any valid SS58
// encoding or a 0x-hex account (32-byte substrate or 20-byte EVM)
func CanonicalAny(addr string) (Canonical, error) {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(strings.ToLower(addr), "0x") {
		if raw, err := decodeHex(addr, accountIDLength); err == nil {
			return Canonical("0x" + hex.EncodeToString(raw)), nil
		}
		raw, err := decodeHex(addr, evmLength)
		if err != nil {
			return "", err
		}
		return Canonical("0x" + hex.EncodeToString(raw)), nil
	}
	accountID, _, err := DecodeSS58(addr)
	if err != nil {
		return "", err
	}
	return Canonical("0x" + hex.EncodeToString(accountID)), nil
}
