package signer

import "strings"

// Coin mirrors the EIP-712 Coin(string denom,string amount) type.
type Coin struct {
	Denom  string
	Amount string
}

// Fee mirrors Fee(Coin[] amount,string gas).
type Fee struct {
	Amount []Coin
	Gas    string
}

// MsgValue mirrors MsgValue(string sender,string contract,string msg,string funds).
// msg is the JSON-serialized ExecuteMsg AS A STRING (spec §4.5); funds is
// "0" when empty, else comma-joined "<amount><denom>" tokens.
type MsgValue struct {
	Sender   string
	Contract string
	Msg      string
	Funds    string
}

// Msg mirrors Msg(string type,MsgValue value). Type is always the
// amino-style "wasmx/MsgExecuteContractCompat" string for this contract.
type Msg struct {
	Type  string
	Value MsgValue
}

// Tx mirrors the primary signing type (spec §4.5); field order here is
// part of the signature and must not be reordered.
type Tx struct {
	AccountNumber string
	ChainID       string
	Fee           Fee
	Memo          string
	Msgs          []Msg
	Sequence      string
	TimeoutHeight string
}

const (
	typeCoin     = "Coin(string denom,string amount)"
	typeFee      = "Fee(Coin[] amount,string gas)"
	typeMsg      = "Msg(string type,MsgValue value)"
	typeMsgValue = "MsgValue(string sender,string contract,string msg,string funds)"
	typeTxPrimary = "Tx(string account_number,string chain_id,Fee fee,string memo,Msg[] msgs,string sequence,string timeout_height)"
)

// txEncodeType concatenates the primary type's encoding with every
// referenced custom type in ascending lexicographic order (spec §4.5):
// Coin, Fee, Msg, MsgValue.
var txEncodeType = strings.Join([]string{typeTxPrimary, typeCoin, typeFee, typeMsg, typeMsgValue}, "")

func typeHashTx() [32]byte       { return keccakString(txEncodeType) }
func typeHashFee() [32]byte      { return keccakString(typeFee + typeCoin) }
func typeHashCoin() [32]byte     { return keccakString(typeCoin) }
func typeHashMsg() [32]byte      { return keccakString(typeMsg + typeMsgValue) }
func typeHashMsgValue() [32]byte { return keccakString(typeMsgValue) }

func hashStructCoin(c Coin) [32]byte {
	th := typeHashCoin()
	denomHash := keccakString(c.Denom)
	amountHash := keccakString(c.Amount)
	return keccak256(th[:], denomHash[:], amountHash[:])
}

func hashStructFee(f Fee) [32]byte {
	th := typeHashFee()
	var encoded []byte
	for _, c := range f.Amount {
		h := hashStructCoin(c)
		encoded = append(encoded, h[:]...)
	}
	arrayHash := keccak256(encoded)
	gasHash := keccakString(f.Gas)
	return keccak256(th[:], arrayHash[:], gasHash[:])
}

func hashStructMsgValue(v MsgValue) [32]byte {
	th := typeHashMsgValue()
	senderHash := keccakString(v.Sender)
	contractHash := keccakString(v.Contract)
	msgHash := keccakString(v.Msg)
	fundsHash := keccakString(v.Funds)
	return keccak256(th[:], senderHash[:], contractHash[:], msgHash[:], fundsHash[:])
}

func hashStructMsg(m Msg) [32]byte {
	th := typeHashMsg()
	typeHash := keccakString(m.Type)
	valueHash := hashStructMsgValue(m.Value)
	return keccak256(th[:], typeHash[:], valueHash[:])
}

func hashStructTx(tx Tx) [32]byte {
	th := typeHashTx()
	accountHash := keccakString(tx.AccountNumber)
	chainIDHash := keccakString(tx.ChainID)
	feeHash := hashStructFee(tx.Fee)
	memoHash := keccakString(tx.Memo)

	var encodedMsgs []byte
	for _, m := range tx.Msgs {
		h := hashStructMsg(m)
		encodedMsgs = append(encodedMsgs, h[:]...)
	}
	msgsArrayHash := keccak256(encodedMsgs)

	sequenceHash := keccakString(tx.Sequence)
	timeoutHash := keccakString(tx.TimeoutHeight)

	return keccak256(th[:], accountHash[:], chainIDHash[:], feeHash[:], memoHash[:], msgsArrayHash[:], sequenceHash[:], timeoutHash[:])
}

// FundsString renders a funds list the way MsgValue.Funds must appear:
// "0" when empty, otherwise comma-joined "<amount><denom>" tokens.
func FundsString(coins []Coin) string {
	if len(coins) == 0 {
		return "0"
	}
	parts := make([]string, len(coins))
	for i, c := range coins {
		parts[i] = c.Amount + c.Denom
	}
	return strings.Join(parts, ",")
}
