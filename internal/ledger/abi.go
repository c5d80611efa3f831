package ledger

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// RegistryABI is the interface of the credential registry contract.
const RegistryABI = `[
  {"type":"function","name":"totalCredentials","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"isIssuer","stateMutability":"view",
   "inputs":[{"name":"account","type":"address"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"issueCredential","stateMutability":"nonpayable",
   "inputs":[
     {"name":"to","type":"address"},
     {"name":"ctype","type":"uint8"},
     {"name":"title","type":"string"},
     {"name":"institution","type":"string"},
     {"name":"expiryDate","type":"uint256"},
     {"name":"credentialHash","type":"bytes32"},
     {"name":"ipfsURI","type":"string"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"revokeCredential","stateMutability":"nonpayable",
   "inputs":[{"name":"tokenId","type":"uint256"},{"name":"reason","type":"string"}],
   "outputs":[]},
  {"type":"function","name":"isValid","stateMutability":"view",
   "inputs":[{"name":"tokenId","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"getCredential","stateMutability":"view",
   "inputs":[{"name":"tokenId","type":"uint256"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"issuer","type":"address"},
     {"name":"recipient","type":"address"},
     {"name":"ctype","type":"uint8"},
     {"name":"title","type":"string"},
     {"name":"institution","type":"string"},
     {"name":"issueDate","type":"uint256"},
     {"name":"expiryDate","type":"uint256"},
     {"name":"credentialHash","type":"bytes32"},
     {"name":"revoked","type":"bool"},
     {"name":"ipfsURI","type":"string"}]}]},
  {"type":"event","name":"CredentialIssued","anonymous":false,"inputs":[
     {"name":"tokenId","type":"uint256","indexed":true},
     {"name":"issuer","type":"address","indexed":true},
     {"name":"recipient","type":"address","indexed":true},
     {"name":"ctype","type":"uint8","indexed":false}]},
  {"type":"event","name":"CredentialRevoked","anonymous":false,"inputs":[
     {"name":"tokenId","type":"uint256","indexed":true},
     {"name":"revoker","type":"address","indexed":true},
     {"name":"reason","type":"string","indexed":false}]}
]`

// ParsedRegistryABI is RegistryABI decoded once at init.
var ParsedRegistryABI = mustParseABI(RegistryABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("ledger: invalid registry ABI: " + err.Error())
	}
	return parsed
}

// credentialTuple mirrors getCredential's tuple; field names follow the ABI
// component names so abi.ConvertType can copy into it.
type credentialTuple struct {
	Issuer         common.Address
	Recipient      common.Address
	Ctype          uint8
	Title          string
	Institution    string
	IssueDate      *big.Int
	ExpiryDate     *big.Int
	CredentialHash [32]byte
	Revoked        bool
	IpfsURI        string
}
