package testutil

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"verichain/internal/ledger"
)

// TestAddresses provides deterministic identities for tests.
var TestAddresses = struct {
	Issuer    common.Address
	Recipient common.Address
	Registry  common.Address
}{
	Issuer:    common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
	Recipient: common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"),
	Registry:  common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc"),
}

// RecordBuilder provides a fluent interface for building registry records.
type RecordBuilder struct {
	record ledger.RawRecord
}

// NewRecordBuilder creates a RecordBuilder with sensible defaults: a
// non-revoked course completion from TestAddresses.Issuer to
// TestAddresses.Recipient, issued now and never expiring.
func NewRecordBuilder() *RecordBuilder {
	return &RecordBuilder{record: ledger.RawRecord{
		Issuer:      TestAddresses.Issuer,
		Recipient:   TestAddresses.Recipient,
		TypeCode:    0,
		Title:       "Test Credential",
		Institution: "Test Institution",
		IssueDate:   big.NewInt(time.Now().Unix()),
		URI:         "ipfs://default",
	}}
}

func (b *RecordBuilder) WithIssuer(addr common.Address) *RecordBuilder {
	b.record.Issuer = addr
	return b
}

func (b *RecordBuilder) WithRecipient(addr common.Address) *RecordBuilder {
	b.record.Recipient = addr
	return b
}

func (b *RecordBuilder) WithTypeCode(code uint8) *RecordBuilder {
	b.record.TypeCode = code
	return b
}

func (b *RecordBuilder) WithTitle(title string) *RecordBuilder {
	b.record.Title = title
	return b
}

func (b *RecordBuilder) WithInstitution(institution string) *RecordBuilder {
	b.record.Institution = institution
	return b
}

func (b *RecordBuilder) IssuedAt(t time.Time) *RecordBuilder {
	b.record.IssueDate = big.NewInt(t.Unix())
	return b
}

func (b *RecordBuilder) ExpiresAt(t time.Time) *RecordBuilder {
	b.record.ExpiryDate = big.NewInt(t.Unix())
	return b
}

func (b *RecordBuilder) WithFingerprint(fp [32]byte) *RecordBuilder {
	b.record.Fingerprint = fp
	return b
}

func (b *RecordBuilder) WithURI(uri string) *RecordBuilder {
	b.record.URI = uri
	return b
}

func (b *RecordBuilder) Revoked() *RecordBuilder {
	b.record.Revoked = true
	return b
}

func (b *RecordBuilder) Build() ledger.RawRecord {
	return b.record
}
