package domain

// RawTransaction is a protocol-native transaction payload as observed on
// chain. It is immutable once observed; unparseable payloads are discarded
// by the normalizer.
type RawTransaction struct {
	Signature    string           // unique transaction identifier
	Slot         int64            // Solana slot number
	Timestamp    int64            // ledger timestamp, Unix ms
	LogMessages  []string         // program log output
	AccountKeys  []string         // base58 account keys in message order
	Instructions []RawInstruction // top-level instructions
}

// RawInstruction is a single instruction within a transaction.
type RawInstruction struct {
	ProgramID string   // base58 program address
	Data      []byte   // raw instruction data
	Accounts  []string // base58 account addresses referenced
}
