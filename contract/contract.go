// Package contract defines the canonical pay-to-contract commitment
// encoding: a fixed 40-byte blob of type tag, nonce and data that is fed as
// tweak material into the key derivation step. Both the committing and the
// verifying party must agree on these bytes exactly, so every construction
// path normalizes to the same serialized form.
package contract

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/decred/dcrd/chaincfg/v3"
	"github.com/decred/dcrd/txscript/v4/stdaddr"
)

const (
	// SerializedLen is the exact length of a serialized contract.
	SerializedLen = 40

	// NonceLen is the exact length of a contract nonce.
	NonceLen = 16

	// DataLen is the exact length of the contract data payload.
	DataLen = 20

	// tagLen is the length of the serialized type tag.
	tagLen = 4
)

// Type is the kind of payload a contract commits to.
type Type byte

const (
	// TypeText is a plain ASCII text commitment.
	TypeText Type = iota

	// TypePubkeyHash commits to a pay-to-pubkey-hash address.
	TypePubkeyHash

	// TypeScriptHash commits to a pay-to-script-hash address.
	TypeScriptHash
)

// Serialize returns the 4-byte tag used in the canonical contract encoding.
// The type set is closed; a Type value outside it panics rather than
// masquerading as one of the known tags.
func (t Type) Serialize() []byte {
	switch t {
	case TypeText:
		return []byte("TEXT")
	case TypePubkeyHash:
		return []byte("P2PH")
	case TypeScriptHash:
		return []byte("P2SH")
	default:
		panic(fmt.Sprintf("invalid contract type %d", byte(t)))
	}
}

// String returns a human-readable name for the type.
func (t Type) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypePubkeyHash:
		return "pubkey-hash"
	case TypeScriptHash:
		return "script-hash"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

// ParseType interprets a serialized type tag. Only the exact 4-byte tags
// emitted by Serialize are accepted; anything else fails with a
// *BadTypeError carrying the offending bytes.
func ParseType(tag []byte) (Type, error) {
	switch string(tag) {
	case "TEXT":
		return TypeText, nil
	case "P2PH":
		return TypePubkeyHash, nil
	case "P2SH":
		return TypeScriptHash, nil
	default:
		return 0, &BadTypeError{Tag: append([]byte(nil), tag...)}
	}
}

// Nonce salts a contract so that two logically identical contracts do not
// produce the same commitment bytes. It has no internal structure.
type Nonce [NonceLen]byte

// NewNonce draws a fresh nonce from the given entropy source.
func NewNonce(entropy io.Reader) (Nonce, error) {
	var n Nonce
	if _, err := io.ReadFull(entropy, n[:]); err != nil {
		return Nonce{}, fmt.Errorf("read nonce entropy: %w", err)
	}
	return n, nil
}

// NonceFromHex decodes a hex string as a nonce. Malformed hex and a decoded
// length other than NonceLen are distinct failures; the latter is reported
// as a *BadLengthError.
func NonceFromHex(s string) (Nonce, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Nonce{}, fmt.Errorf("decode nonce hex: %w", err)
	}
	if len(b) != NonceLen {
		return Nonce{}, &BadLengthError{Len: len(b)}
	}
	var n Nonce
	copy(n[:], b)
	return n, nil
}

// Serialize returns the raw nonce bytes.
func (n Nonce) Serialize() []byte {
	out := make([]byte, NonceLen)
	copy(out, n[:])
	return out
}

// String formats the nonce as 32 lowercase hex characters.
func (n Nonce) String() string {
	return hex.EncodeToString(n[:])
}

// Contract is an immutable commitment value. The zero value is not a valid
// contract; use one of the From constructors.
type Contract struct {
	typ   Type
	nonce Nonce
	data  [DataLen]byte
}

// Type returns the contract's payload kind.
func (c Contract) Type() Type { return c.typ }

// Nonce returns the nonce the contract was constructed with.
func (c Contract) Nonce() Nonce { return c.nonce }

// Data returns a copy of the 20-byte data payload.
func (c Contract) Data() []byte {
	d := c.data
	return d[:]
}

// Serialize returns the canonical 40-byte encoding: type tag, nonce, data,
// in that order. This is the tweak input consumed by key derivation and is
// byte-identical across all construction paths for equal contracts.
func (c Contract) Serialize() []byte {
	out := make([]byte, 0, SerializedLen)
	out = append(out, c.typ.Serialize()...)
	out = append(out, c.nonce[:]...)
	out = append(out, c.data[:]...)
	return out
}

// FromHex decodes a hex string as a full serialized contract. The blob
// carries its own nonce, so none is taken from the caller.
func FromHex(s string) (Contract, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Contract{}, fmt.Errorf("decode contract hex: %w", err)
	}
	if len(b) != SerializedLen {
		return Contract{}, &BadLengthError{Len: len(b)}
	}
	typ, err := ParseType(b[:tagLen])
	if err != nil {
		return Contract{}, err
	}
	c := Contract{typ: typ}
	copy(c.nonce[:], b[tagLen:tagLen+NonceLen])
	copy(c.data[:], b[tagLen+NonceLen:])
	return c, nil
}

// knownNets are the networks consulted when diagnosing an input that fails
// to decode under the configured one.
func knownNets() []*chaincfg.Params {
	return []*chaincfg.Params{
		chaincfg.MainNetParams(),
		chaincfg.TestNet3Params(),
		chaincfg.SimNetParams(),
		chaincfg.RegNetParams(),
	}
}

// FromP2SHAddress decodes a base58check address as a contract, taking the
// embedded 20-byte hash as the data payload. The address must belong to the
// given network; an address valid on another known network fails with a
// *WrongNetworkError naming both. The nonce must be supplied by the caller
// since the address carries none.
func FromP2SHAddress(s string, nonce Nonce, params *chaincfg.Params) (Contract, error) {
	addr, err := stdaddr.DecodeAddress(s, params)
	if err != nil {
		for _, p := range knownNets() {
			if p.Name == params.Name {
				continue
			}
			if _, err2 := stdaddr.DecodeAddress(s, p); err2 == nil {
				return Contract{}, &WrongNetworkError{Got: p.Name, Want: params.Name}
			}
		}
		return Contract{}, fmt.Errorf("decode address %q: %w", s, err)
	}

	c := Contract{nonce: nonce}
	switch a := addr.(type) {
	case *stdaddr.AddressPubKeyHashEcdsaSecp256k1V0:
		c.typ = TypePubkeyHash
		c.data = *a.Hash160()
	case *stdaddr.AddressScriptHashV0:
		c.typ = TypeScriptHash
		c.data = *a.Hash160()
	default:
		return Contract{}, fmt.Errorf("address %q is not pay-to-pubkey-hash or pay-to-script-hash", s)
	}
	return c, nil
}

// FromASCII encodes an ASCII string of exactly DataLen bytes as a text
// contract. The nonce must be supplied by the caller.
func FromASCII(s string, nonce Nonce) (Contract, error) {
	if len(s) != DataLen {
		return Contract{}, &BadLengthError{Len: len(s)}
	}
	c := Contract{typ: TypeText, nonce: nonce}
	copy(c.data[:], s)
	return c, nil
}
