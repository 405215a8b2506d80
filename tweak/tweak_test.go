package tweak

import (
	"bytes"
	"errors"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/txscript/v4"
)

// testCommitment builds a 40-byte commitment with recognizable content.
func testCommitment(fill byte) []byte {
	c := make([]byte, 40)
	copy(c, "TEXT")
	for i := 4; i < len(c); i++ {
		c[i] = fill
	}
	return c
}

func TestUntemplateRoundTrip(t *testing.T) {
	k1, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	k2, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	pub1 := k1.PubKey()
	pub2 := k2.PubKey()

	script, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_1).
		AddData(pub1.SerializeCompressed()).
		AddData(pub2.SerializeCompressed()).
		AddOp(txscript.OP_2).
		AddOp(txscript.OP_CHECKMULTISIG).
		Script()
	if err != nil {
		t.Fatalf("build script: %v", err)
	}

	tmpl, keys, err := Untemplate(script)
	if err != nil {
		t.Fatalf("untemplate: %v", err)
	}
	if tmpl.KeySlots() != 2 || len(keys) != 2 {
		t.Fatalf("want 2 keys, got %d slots / %d keys", tmpl.KeySlots(), len(keys))
	}
	if !keys[0].IsEqual(pub1) || !keys[1].IsEqual(pub2) {
		t.Fatalf("extracted keys out of order or corrupted")
	}

	rebuilt, err := tmpl.Script(keys)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if !bytes.Equal(rebuilt, script) {
		t.Fatalf("rebuilt script differs:\n got %x\nwant %x", rebuilt, script)
	}
}

func TestUntemplatePreservesNonKeyPushes(t *testing.T) {
	k1, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	hash := bytes.Repeat([]byte{0x5a}, 20)

	script, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_HASH160).
		AddData(hash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddData(k1.PubKey().SerializeCompressed()).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	if err != nil {
		t.Fatalf("build script: %v", err)
	}

	tmpl, keys, err := Untemplate(script)
	if err != nil {
		t.Fatalf("untemplate: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("want 1 key, got %d", len(keys))
	}

	rebuilt, err := tmpl.Script(keys)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if !bytes.Equal(rebuilt, script) {
		t.Fatalf("non-key pushes not preserved:\n got %x\nwant %x", rebuilt, script)
	}
}

func TestUntemplateUncompressedKey(t *testing.T) {
	k1, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}

	script, err := txscript.NewScriptBuilder().
		AddData(k1.PubKey().SerializeUncompressed()).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	if err != nil {
		t.Fatalf("build script: %v", err)
	}

	tmpl, keys, err := Untemplate(script)
	if err != nil {
		t.Fatalf("untemplate: %v", err)
	}
	if len(keys) != 1 || !keys[0].IsEqual(k1.PubKey()) {
		t.Fatalf("uncompressed key not extracted")
	}

	// Reinsertion normalizes to the compressed form.
	rebuilt, err := tmpl.Script(keys)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if !bytes.Contains(rebuilt, k1.PubKey().SerializeCompressed()) {
		t.Fatalf("rebuilt script does not contain compressed key")
	}
}

func TestUntemplateCanonicalizesEmptyPush(t *testing.T) {
	// A zero-length PUSHDATA1 is rebuilt as the canonical empty push.
	script := []byte{txscript.OP_PUSHDATA1, 0x00, txscript.OP_DROP, txscript.OP_TRUE}

	tmpl, keys, err := Untemplate(script)
	if err != nil {
		t.Fatalf("untemplate: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("want no keys, got %d", len(keys))
	}

	rebuilt, err := tmpl.Script(nil)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	want := []byte{txscript.OP_0, txscript.OP_DROP, txscript.OP_TRUE}
	if !bytes.Equal(rebuilt, want) {
		t.Fatalf("rebuilt script not canonical:\n got %x\nwant %x", rebuilt, want)
	}
}

func TestTemplateKeyCountMismatch(t *testing.T) {
	k1, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	script, err := txscript.NewScriptBuilder().
		AddData(k1.PubKey().SerializeCompressed()).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	if err != nil {
		t.Fatalf("build script: %v", err)
	}
	tmpl, _, err := Untemplate(script)
	if err != nil {
		t.Fatalf("untemplate: %v", err)
	}
	_, err = tmpl.Script(nil)
	if !errors.Is(err, ErrKeyCount) {
		t.Fatalf("want ErrKeyCount, got %v", err)
	}
}

func TestSecretKeyMatchesKeys(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	commitment := testCommitment(0x33)

	tweakedPriv, err := SecretKey(priv, commitment)
	if err != nil {
		t.Fatalf("tweak secret key: %v", err)
	}
	tweakedPubs, err := Keys([]*secp256k1.PublicKey{priv.PubKey()}, commitment)
	if err != nil {
		t.Fatalf("tweak keys: %v", err)
	}

	got := tweakedPriv.PubKey().SerializeCompressed()
	want := tweakedPubs[0].SerializeCompressed()
	if !bytes.Equal(got, want) {
		t.Fatalf("secret/public tweak mismatch:\n got %x\nwant %x", got, want)
	}
}

func TestTweakDependsOnCommitment(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	a, err := Keys([]*secp256k1.PublicKey{priv.PubKey()}, testCommitment(0x01))
	if err != nil {
		t.Fatalf("tweak keys: %v", err)
	}
	b, err := Keys([]*secp256k1.PublicKey{priv.PubKey()}, testCommitment(0x02))
	if err != nil {
		t.Fatalf("tweak keys: %v", err)
	}
	if a[0].IsEqual(b[0]) {
		t.Fatalf("different commitments produced the same tweaked key")
	}
	if a[0].IsEqual(priv.PubKey()) {
		t.Fatalf("tweaked key equals the original key")
	}
}
