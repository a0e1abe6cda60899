package txbuilder

// BuildBody assembles the TxBody carrying exactly one
// MsgExecuteContractCompat and one ExtensionOptionsWeb3Tx (spec §4.5).
func BuildBody(msg MsgExecuteContractCompat, memo string, timeoutHeight uint64, ethChainID uint64) TxBody {
	return TxBody{
		Messages:         []Any{msg.AsAny()},
		Memo:             memo,
		TimeoutHeight:    timeoutHeight,
		ExtensionOptions: []Any{ExtensionOptionsWeb3Tx{TypedDataChainID: ethChainID}.AsAny()},
	}
}

// BuildAuthInfo assembles the single-signer AuthInfo for an EIP-712
// signed transaction (spec §4.5: ethsecp256k1.PubKey, LEGACY_AMINO_JSON).
func BuildAuthInfo(compressedPubKey []byte, sequence uint64, feeAmount []Coin, gasLimit uint64) AuthInfo {
	return AuthInfo{
		SignerInfos: []SignerInfo{{
			PublicKey: EthSecp256k1PubKey{Key: compressedPubKey}.AsAny(),
			ModeInfo:  ModeInfoSingle{Mode: SignModeLegacyAminoJSON},
			Sequence:  sequence,
		}},
		Fee: Fee{Amount: feeAmount, GasLimit: gasLimit},
	}
}

// Assemble produces the final signed TxRaw wire bytes.
func Assemble(body TxBody, authInfo AuthInfo, signature []byte) TxRaw {
	return TxRaw{
		BodyBytes:     body.Marshal(),
		AuthInfoBytes: authInfo.Marshal(),
		Signatures:    [][]byte{signature},
	}
}
