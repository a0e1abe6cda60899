// Package keyring derives a secp256k1 signing key from a BIP-39 mnemonic
// and exposes the bech32 address and compressed public key the chain
// client and signer need. Key derivation itself is named as
// assumed-available in spec §1; this wires real libraries for it rather
// than stubbing it out.
package keyring

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha512"

	"github.com/btcsuite/btcutil/bech32"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
)

// Keyring holds one derived secp256k1 key pair.
type Keyring struct {
	priv   *ecdsa.PrivateKey
	pubKey []byte // compressed, 33 bytes
}

// hardenedMasterSalt is the BIP-32 "ed25519 seed"-style HMAC key used for
// the master extended key, analogous to "Bitcoin seed" in BIP-32.
var hardenedMasterSalt = []byte("Injective seed")

// FromMnemonic derives a single key for the given mnemonic: the private
// key is the left 32 bytes of the master-key HMAC over the BIP-39 seed.
// No child path is derived; only the master-key derivation is
// implemented (one miner address per instance, per spec §1 Non-goals).
func FromMnemonic(mnemonic string) (*Keyring, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("keyring: invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, "")

	mac := hmac.New(sha512.New, hardenedMasterSalt)
	mac.Write(seed)
	sum := mac.Sum(nil)
	keyBytes := sum[:32]

	priv, err := ethcrypto.ToECDSA(keyBytes)
	if err != nil {
		return nil, errors.Wrap(err, "keyring: derive private key")
	}
	pub := ethcrypto.CompressPubkey(&priv.PublicKey)
	return &Keyring{priv: priv, pubKey: pub}, nil
}

// PrivateKey returns the derived secp256k1 private key.
func (k *Keyring) PrivateKey() *ecdsa.PrivateKey { return k.priv }

// CompressedPubKey returns the 33-byte compressed public key, as carried
// in the chain's ethsecp256k1.PubKey wire type (spec §4.5).
func (k *Keyring) CompressedPubKey() []byte {
	out := make([]byte, len(k.pubKey))
	copy(out, k.pubKey)
	return out
}

// Bech32Address derives the bech32 address for the given human-readable
// prefix from the uncompressed public key's Keccak-last-20-bytes, the
// Ethereum-style address derivation this chain uses.
func (k *Keyring) Bech32Address(hrp string) (string, error) {
	ethAddr := ethcrypto.PubkeyToAddress(k.priv.PublicKey)
	conv, err := bech32.ConvertBits(ethAddr.Bytes(), 8, 5, true)
	if err != nil {
		return "", errors.Wrap(err, "keyring: convert address bits")
	}
	addr, err := bech32.Encode(hrp, conv)
	if err != nil {
		return "", errors.Wrap(err, "keyring: bech32 encode")
	}
	return addr, nil
}

// Sign produces a 65-byte recoverable secp256k1 signature over a 32-byte
// digest, with v in {27,28} per spec §4.5 (ethereum's crypto.Sign yields
// v in {0,1}; 27 is added here).
func Sign(priv *ecdsa.PrivateKey, digest [32]byte) ([65]byte, error) {
	sig, err := ethcrypto.Sign(digest[:], priv)
	if err != nil {
		return [65]byte{}, errors.Wrap(err, "keyring: sign digest")
	}
	var out [65]byte
	copy(out[:], sig)
	out[64] = sig[64] + 27
	return out, nil
}
