// Package signer builds byte-exact EIP-712 typed data for the chain's
// mining contract and produces recoverable secp256k1 signatures over it
// (spec §4.5). This package is the single source of truth for
// canonicalization; nothing outside it should construct typed-data bytes.
package signer

import (
	"math/big"

	"golang.org/x/crypto/sha3"
)

// Domain constants for the testnet deployment (spec §6).
const (
	DomainName    = "Injective Web3"
	DomainVersion = "1.0.0"
	TestnetChainID = 1439
	VerifyingContract = "cosmos"
	DomainSalt    = "0"
)

const domainTypeString = "EIP712Domain(string name,string version,uint256 chainId,string verifyingContract,string salt)"

func keccak256(parts ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// keccakString hashes a UTF-8 string per EIP-712's `string` field encoding.
func keccakString(s string) [32]byte {
	return keccak256([]byte(s))
}

// be32 renders an unsigned chain id as a big-endian, left-zero-padded
// 32-byte word, the EIP-712 uint256 encoding.
func be32(v uint64) [32]byte {
	var out [32]byte
	big.NewInt(0).SetUint64(v).FillBytes(out[:])
	return out
}

// Domain holds the resolved EIP-712 domain for a given chain id. Only
// chainId varies across deployments (testnet uses 1439); the rest are
// fixed per spec §6.
type Domain struct {
	Name              string
	Version           string
	ChainID           uint64
	VerifyingContract string
	Salt              string
}

// TestnetDomain returns the domain described in spec §6.
func TestnetDomain() Domain {
	return Domain{
		Name:              DomainName,
		Version:           DomainVersion,
		ChainID:           TestnetChainID,
		VerifyingContract: VerifyingContract,
		Salt:              DomainSalt,
	}
}

// Separator computes the EIP-712 domain separator (spec §4.5).
func (d Domain) Separator() [32]byte {
	typeHash := keccakString(domainTypeString)
	nameHash := keccakString(d.Name)
	versionHash := keccakString(d.Version)
	chainIDWord := be32(d.ChainID)
	contractHash := keccakString(d.VerifyingContract)
	saltHash := keccakString(d.Salt)
	return keccak256(typeHash[:], nameHash[:], versionHash[:], chainIDWord[:], contractHash[:], saltHash[:])
}
