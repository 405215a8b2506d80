// Package pacthash resolves the command inputs of the pay-to-contract tool
// into a single actionable tuple: the run mode, the contract to commit to,
// and the key material to tweak. All validation of mutually-constrained
// inputs lives here so the command itself only has to act on the result.
package pacthash

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/decred/dcrd/chaincfg/v3"
	"github.com/decred/dcrd/dcrutil/v4"

	"github.com/apoelstra/pacthash/contract"
)

// Mode selects what the tool derives from the resolved contract.
type Mode int

const (
	// ModeGenAddress derives a tweaked redemption script and its P2SH
	// address from an operator-supplied script.
	ModeGenAddress Mode = iota

	// ModeGenPrivkey derives a tweaked private key from an
	// operator-supplied one.
	ModeGenPrivkey
)

// String returns the flag name associated with the mode.
func (m Mode) String() string {
	if m == ModeGenAddress {
		return "gen-address"
	}
	return "gen-privkey"
}

// UsageError reports a violation of the mutual-constraint rules between
// command inputs: conflicting flags or a missing required one. The command
// follows it with usage text; other error kinds get a diagnostic only.
type UsageError string

func (e UsageError) Error() string { return string(e) }

// Request carries the raw optional command inputs prior to resolution.
// String fields hold operator-supplied text verbatim; empty means absent.
type Request struct {
	GenAddress bool
	GenPrivkey bool

	RedeemScriptHex string
	PrivateKeyWIF   string
	NonceHex        string

	HexContract   string
	P2SHAddress   string
	ASCIIContract string

	// Params selects the network that addresses and keys must belong to.
	Params *chaincfg.Params

	// Entropy supplies nonce material when one has to be generated; the
	// resolver reads exactly contract.NonceLen bytes from it in that
	// case. Nil means crypto/rand.
	Entropy io.Reader
}

// Resolved is the fully-validated outcome of a resolution, ready for the
// key tweaking step.
type Resolved struct {
	Mode     Mode
	Contract contract.Contract

	// RedeemScript is the decoded script in ModeGenAddress, nil otherwise.
	RedeemScript []byte

	// WIF is the decoded private key in ModeGenPrivkey, nil otherwise.
	WIF *dcrutil.WIF

	// NonceGenerated reports that the contract's nonce was drawn from the
	// entropy source rather than supplied by the operator. A generated
	// nonce must be shown to the operator or the contract cannot be
	// reproduced for verification.
	NonceGenerated bool
}

// Resolve validates the request and produces the resolved tuple. It fails
// with a UsageError on flag misuse and with the typed contract errors on
// malformed values; it has no side effects beyond the optional entropy
// read.
func Resolve(req Request) (*Resolved, error) {
	// The mode flags are checked before anything else is looked at.
	if req.GenAddress == req.GenPrivkey {
		if req.GenAddress {
			return nil, UsageError("at most one of -gen-address and -gen-privkey may be given")
		}
		return nil, UsageError("one of -gen-address or -gen-privkey must be given")
	}

	res := &Resolved{Mode: ModeGenPrivkey}
	if req.GenAddress {
		res.Mode = ModeGenAddress
	}

	switch res.Mode {
	case ModeGenAddress:
		if req.PrivateKeyWIF != "" {
			return nil, UsageError("-private-key may only be used with -gen-privkey")
		}
		if req.RedeemScriptHex == "" {
			return nil, UsageError("-redeem-script is required with -gen-address")
		}
		script, err := hex.DecodeString(req.RedeemScriptHex)
		if err != nil {
			return nil, fmt.Errorf("decode redeem script hex: %w", err)
		}
		res.RedeemScript = script

	case ModeGenPrivkey:
		if req.RedeemScriptHex != "" {
			return nil, UsageError("-redeem-script may only be used with -gen-address")
		}
		if req.PrivateKeyWIF == "" {
			return nil, UsageError("-private-key is required with -gen-privkey")
		}
		wif, err := decodeWIF(req.PrivateKeyWIF, req.Params)
		if err != nil {
			return nil, err
		}
		res.WIF = wif
	}

	sources := 0
	for _, s := range []string{req.HexContract, req.P2SHAddress, req.ASCIIContract} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		return nil, UsageError("exactly one of -hex-contract, -p2sh-address or -ascii-contract must be given")
	}

	switch {
	case req.HexContract != "":
		// The blob carries its own nonce; a separately supplied one is
		// ignored by construction and never parsed.
		c, err := contract.FromHex(req.HexContract)
		if err != nil {
			return nil, fmt.Errorf("parse -hex-contract: %w", err)
		}
		res.Contract = c

	case req.P2SHAddress != "":
		nonce, generated, err := resolveNonce(req, res.Mode)
		if err != nil {
			return nil, err
		}
		c, err := contract.FromP2SHAddress(req.P2SHAddress, nonce, req.Params)
		if err != nil {
			return nil, fmt.Errorf("parse -p2sh-address: %w", err)
		}
		res.Contract = c
		res.NonceGenerated = generated

	default:
		nonce, generated, err := resolveNonce(req, res.Mode)
		if err != nil {
			return nil, err
		}
		c, err := contract.FromASCII(req.ASCIIContract, nonce)
		if err != nil {
			return nil, fmt.Errorf("parse -ascii-contract: %w", err)
		}
		res.Contract = c
		res.NonceGenerated = generated
	}

	return res, nil
}

// resolveNonce returns the operator-supplied nonce, or in ModeGenAddress a
// freshly generated one. ModeGenPrivkey never generates: the operator is
// reproducing an existing contract and a made-up nonce would silently
// derive an unspendable key.
func resolveNonce(req Request, mode Mode) (contract.Nonce, bool, error) {
	if req.NonceHex != "" {
		n, err := contract.NonceFromHex(req.NonceHex)
		if err != nil {
			return contract.Nonce{}, false, fmt.Errorf("parse -nonce: %w", err)
		}
		return n, false, nil
	}
	if mode == ModeGenPrivkey {
		return contract.Nonce{}, false, UsageError("-nonce is required with -gen-privkey unless -hex-contract is used")
	}
	entropy := req.Entropy
	if entropy == nil {
		entropy = rand.Reader
	}
	n, err := contract.NewNonce(entropy)
	if err != nil {
		return contract.Nonce{}, false, err
	}
	return n, true, nil
}

// keyNets mirrors the candidate list used for address diagnosis.
func keyNets() []*chaincfg.Params {
	return []*chaincfg.Params{
		chaincfg.MainNetParams(),
		chaincfg.TestNet3Params(),
		chaincfg.SimNetParams(),
		chaincfg.RegNetParams(),
	}
}

// decodeWIF decodes an operator-supplied private key, diagnosing a key that
// belongs to another known network as a *contract.WrongNetworkError.
func decodeWIF(s string, params *chaincfg.Params) (*dcrutil.WIF, error) {
	wif, err := dcrutil.DecodeWIF(s, params.PrivateKeyID)
	if err == nil {
		return wif, nil
	}
	for _, p := range keyNets() {
		if p.Name == params.Name {
			continue
		}
		if _, err2 := dcrutil.DecodeWIF(s, p.PrivateKeyID); err2 == nil {
			return nil, &contract.WrongNetworkError{Got: p.Name, Want: params.Name}
		}
	}
	return nil, fmt.Errorf("decode private key: %w", err)
}
