// Package tweak implements pay-to-contract key derivation: committing a
// serialized contract into secp256k1 keys, and lifting the public keys out
// of a redemption script so the tweaked ones can be put back in their
// place.
package tweak

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/txscript/v4"
)

// ErrKeyCount is returned by Template.Script when the number of keys does
// not match the number of key slots in the template.
var ErrKeyCount = errors.New("key count does not match template slots")

// segment is one tokenized element of a templated script: either a literal
// opcode/push carried verbatim, or a key slot.
type segment struct {
	opcode byte
	data   []byte
	isKey  bool
}

// Template is a redemption script with its public key pushes lifted out,
// leaving slots that Script fills with replacement keys.
type Template struct {
	segments []segment
	keySlots int
}

// KeySlots returns the number of public keys the template expects.
func (t *Template) KeySlots() int { return t.keySlots }

// Untemplate tokenizes a redemption script and splits it into a Template
// and the public keys it pushes, in script order. A data push is treated as
// a key when it has the exact shape of a compressed or uncompressed
// secp256k1 point and parses as one; everything else is preserved verbatim.
func Untemplate(script []byte) (*Template, []*secp256k1.PublicKey, error) {
	const scriptVersion = 0

	tmpl := &Template{}
	var keys []*secp256k1.PublicKey
	tok := txscript.MakeScriptTokenizer(scriptVersion, script)
	for tok.Next() {
		data := tok.Data()
		if isPubKeyShaped(data) {
			key, err := secp256k1.ParsePubKey(data)
			if err == nil {
				keys = append(keys, key)
				tmpl.segments = append(tmpl.segments, segment{isKey: true})
				tmpl.keySlots++
				continue
			}
		}
		tmpl.segments = append(tmpl.segments, segment{opcode: tok.Opcode(), data: data})
	}
	if err := tok.Err(); err != nil {
		return nil, nil, fmt.Errorf("parse redemption script: %w", err)
	}
	return tmpl, keys, nil
}

func isPubKeyShaped(data []byte) bool {
	switch {
	case len(data) == 33 && (data[0] == 0x02 || data[0] == 0x03):
		return true
	case len(data) == 65 && data[0] == 0x04:
		return true
	}
	return false
}

// Script rebuilds the script with the given keys substituted into the key
// slots in order. Keys are inserted in compressed form. len(keys) must
// equal KeySlots.
func (t *Template) Script(keys []*secp256k1.PublicKey) ([]byte, error) {
	if len(keys) != t.keySlots {
		return nil, fmt.Errorf("%w: template has %d slots, got %d keys",
			ErrKeyCount, t.keySlots, len(keys))
	}
	b := txscript.NewScriptBuilder()
	next := 0
	for _, seg := range t.segments {
		switch {
		case seg.isKey:
			b.AddData(keys[next].SerializeCompressed())
			next++
		case seg.data != nil:
			// AddData re-encodes pushes canonically, so a degenerate
			// zero-length PUSHDATA comes back as OP_0. The rebuilt
			// script is only guaranteed byte-identical for scripts
			// whose pushes were canonical to begin with.
			b.AddData(seg.data)
		default:
			b.AddOp(seg.opcode)
		}
	}
	return b.Script()
}

// commitmentTweak computes the scalar that commits the serialized contract
// to the given key: HMAC-SHA256 keyed by the compressed public key over the
// contract bytes. The digest must be a valid non-zero group scalar.
func commitmentTweak(pub *secp256k1.PublicKey, commitment []byte) (*secp256k1.ModNScalar, error) {
	mac := hmac.New(sha256.New, pub.SerializeCompressed())
	mac.Write(commitment)

	var t secp256k1.ModNScalar
	if overflow := t.SetByteSlice(mac.Sum(nil)); overflow {
		return nil, fmt.Errorf("commitment tweak overflows the group order")
	}
	if t.IsZero() {
		return nil, fmt.Errorf("commitment tweak is zero")
	}
	return &t, nil
}

// Keys returns the public keys tweaked by the commitment: each key becomes
// key + t·G with t the per-key commitment scalar.
func Keys(keys []*secp256k1.PublicKey, commitment []byte) ([]*secp256k1.PublicKey, error) {
	out := make([]*secp256k1.PublicKey, 0, len(keys))
	for _, key := range keys {
		t, err := commitmentTweak(key, commitment)
		if err != nil {
			return nil, err
		}

		var tG, kj, sum secp256k1.JacobianPoint
		secp256k1.ScalarBaseMultNonConst(t, &tG)
		key.AsJacobian(&kj)
		secp256k1.AddNonConst(&kj, &tG, &sum)
		if sum.Z.IsZero() {
			return nil, fmt.Errorf("tweaked key is the point at infinity")
		}
		sum.ToAffine()

		var x, y secp256k1.FieldVal
		x.Set(&sum.X)
		y.Set(&sum.Y)
		out = append(out, secp256k1.NewPublicKey(&x, &y))
	}
	return out, nil
}

// SecretKey returns the private key tweaked by the commitment, such that
// its public key equals Keys applied to the original public key.
func SecretKey(priv *secp256k1.PrivateKey, commitment []byte) (*secp256k1.PrivateKey, error) {
	t, err := commitmentTweak(priv.PubKey(), commitment)
	if err != nil {
		return nil, err
	}

	var k secp256k1.ModNScalar
	k.Set(&priv.Key)
	k.Add(t)
	if k.IsZero() {
		return nil, fmt.Errorf("tweaked secret key is zero")
	}
	return secp256k1.NewPrivateKey(&k), nil
}
