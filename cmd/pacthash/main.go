package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/decred/dcrd/chaincfg/v3"
	"github.com/decred/dcrd/dcrec"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrd/txscript/v4/stdaddr"
	"github.com/decred/slog"

	"github.com/apoelstra/pacthash"
	"github.com/apoelstra/pacthash/tweak"
)

var (
	flagset      = flag.NewFlagSet("pacthash", flag.ExitOnError)
	genAddrFlag  = flagset.Bool("gen-address", false, "generate a tweaked redemption script and corresponding P2SH address")
	genKeyFlag   = flagset.Bool("gen-privkey", false, "generate a tweaked private key")
	redeemFlag   = flagset.String("redeem-script", "", "hex-encoded redemption script for -gen-address")
	privKeyFlag  = flagset.String("private-key", "", "WIF-encoded private key for -gen-privkey")
	p2shFlag     = flagset.String("p2sh-address", "", "contract given as a P2SH address")
	asciiFlag    = flagset.String("ascii-contract", "", "contract given as a 20-byte ASCII string")
	hexContrFlag = flagset.String("hex-contract", "", "contract given as an 80-character hex string")
	nonceFlag    = flagset.String("nonce", "", "hex-encoded 16-byte nonce")
	testnetFlag  = flagset.Bool("testnet", false, "use testnet (defaults to mainnet)")
)

var log = slog.Disabled

func init() {
	flagset.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: pacthash [-testnet] <-gen-address|-gen-privkey> "+
			"<-hex-contract hex | -p2sh-address addr [-nonce hex] | -ascii-contract text [-nonce hex]>")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Flags:")
		flagset.PrintDefaults()
	}
}

func main() {
	if err := run(); err != nil {
		log.Errorf("%v", err)
		var usage pacthash.UsageError
		if errors.As(err, &usage) {
			flagset.Usage()
		}
		os.Exit(1)
	}
}

func run() error {
	backend := slog.NewBackend(os.Stderr)
	log = backend.Logger("PACT")

	flagset.Parse(os.Args[1:])
	if flagset.NArg() != 0 {
		return pacthash.UsageError("unexpected positional arguments")
	}

	params := chaincfg.MainNetParams()
	if *testnetFlag {
		params = chaincfg.TestNet3Params()
	}

	res, err := pacthash.Resolve(pacthash.Request{
		GenAddress:      *genAddrFlag,
		GenPrivkey:      *genKeyFlag,
		RedeemScriptHex: *redeemFlag,
		PrivateKeyWIF:   *privKeyFlag,
		NonceHex:        *nonceFlag,
		HexContract:     *hexContrFlag,
		P2SHAddress:     *p2shFlag,
		ASCIIContract:   *asciiFlag,
		Params:          params,
	})
	if err != nil {
		return err
	}

	switch res.Mode {
	case pacthash.ModeGenAddress:
		newScript, addr, err := genAddress(res, params)
		if err != nil {
			return err
		}

		printNetwork()
		fmt.Printf("Nonce: %s\n", res.Contract.Nonce())
		fmt.Printf("Modified redeem script: %s\n", hex.EncodeToString(newScript))
		fmt.Printf("Modified redeem script as P2SH address: %s\n", addr)

	case pacthash.ModeGenPrivkey:
		wif, err := genPrivkey(res, params)
		if err != nil {
			return err
		}

		printNetwork()
		fmt.Printf("Nonce: %s\n", res.Contract.Nonce())
		fmt.Printf("New secret key: %s\n", wif)
	}

	return nil
}

// genAddress tweaks the keys of the resolved redemption script by the
// contract commitment and returns the rebuilt script and its P2SH address.
func genAddress(res *pacthash.Resolved, params *chaincfg.Params) ([]byte, stdaddr.Address, error) {
	tmpl, keys, err := tweak.Untemplate(res.RedeemScript)
	if err != nil {
		return nil, nil, fmt.Errorf("extract keys from redemption script: %w", err)
	}
	tweaked, err := tweak.Keys(keys, res.Contract.Serialize())
	if err != nil {
		return nil, nil, fmt.Errorf("tweak keys: %w", err)
	}
	newScript, err := tmpl.Script(tweaked)
	if err != nil {
		return nil, nil, fmt.Errorf("rebuild redemption script: %w", err)
	}
	addr, err := stdaddr.NewAddressScriptHash(0, newScript, params)
	if err != nil {
		return nil, nil, fmt.Errorf("encode P2SH address: %w", err)
	}
	return newScript, addr, nil
}

// genPrivkey tweaks the resolved private key by the contract commitment and
// re-encodes it for the configured network.
func genPrivkey(res *pacthash.Resolved, params *chaincfg.Params) (*dcrutil.WIF, error) {
	priv := secp256k1.PrivKeyFromBytes(res.WIF.PrivKey())
	tweakedPriv, err := tweak.SecretKey(priv, res.Contract.Serialize())
	if err != nil {
		return nil, fmt.Errorf("tweak private key: %w", err)
	}
	wif, err := dcrutil.NewWIF(tweakedPriv.Serialize(), params.PrivateKeyID,
		dcrec.STEcdsaSecp256k1)
	if err != nil {
		return nil, fmt.Errorf("encode private key: %w", err)
	}
	return wif, nil
}

func printNetwork() {
	if *testnetFlag {
		fmt.Println("Using testnet!")
	} else {
		fmt.Println("Using mainnet!")
	}
}
