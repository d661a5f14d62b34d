package services

import (
	"errors"
	"math/big"

	"artix/contexts/agent-treasury/allowance-service/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	domainTypeHash   = crypto.Keccak256Hash([]byte("EIP712Domain(uint256 chainId,address verifyingContract)"))
	transferTypeHash = crypto.Keccak256Hash([]byte("AllowanceTransfer(address safe,address token,address to,uint96 amount,address paymentToken,uint96 payment,uint16 nonce)"))

	// MaxUint96 bounds transfer amounts; the module packs them as uint96.
	MaxUint96 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 96), big.NewInt(1))

	errMalformedSignature = errors.New("signature must be 65 bytes with v of 27 or 28")
)

func DomainSeparator(chainID *big.Int, module common.Address) common.Hash {
	return crypto.Keccak256Hash(domainTypeHash.Bytes(), word(chainID), addressWord(module))
}

// TransferHash is the EIP-712 digest the allowance module expects the
// delegate to sign for req.
func TransferHash(chainID *big.Int, module common.Address, req entities.TransferRequest) common.Hash {
	structHash := crypto.Keccak256Hash(
		transferTypeHash.Bytes(),
		addressWord(req.Principal),
		addressWord(req.Token),
		addressWord(req.Recipient),
		word(req.Amount),
		addressWord(req.PaymentToken),
		word(req.Payment),
		word(new(big.Int).SetUint64(uint64(req.Nonce))),
	)
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, DomainSeparator(chainID, module).Bytes(), structHash.Bytes())
}

// RecoverSigner returns the address that produced signature over hash.
func RecoverSigner(hash common.Hash, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength || (signature[64] != 27 && signature[64] != 28) {
		return common.Address{}, errMalformedSignature
	}
	normalized := make([]byte, len(signature))
	copy(normalized, signature)
	normalized[64] -= 27
	key, err := crypto.SigToPub(hash.Bytes(), normalized)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*key), nil
}

func word(v *big.Int) []byte {
	if v == nil {
		return make([]byte, 32)
	}
	return math.U256Bytes(new(big.Int).Set(v))
}

func addressWord(addr common.Address) []byte {
	return common.LeftPadBytes(addr.Bytes(), 32)
}
