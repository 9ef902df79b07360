package chainstate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// We're sticking with value rather than pointer, hashes are used as
// map keys throughout (queued blocks, pending outputs).
type Uint256 [32]byte

// GenesisPreviousBlockHash is the parent hash declared by the genesis
// block. The state reports it as the tip hash while it is empty.
var GenesisPreviousBlockHash Uint256

func (u Uint256) String() string {
	for i := 0; i < 16; i++ {
		u[i], u[31-i] = u[31-i], u[i]
	}
	return hex.EncodeToString(u[:])
}

func (u Uint256) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

func (u Uint256) IsZero() bool {
	return u == Uint256{}
}

// NB: we interpret this as little-endian. Traditionally Bitcoin
// transaction ids are printed in big-endian, i.e. reverse of this.
func ShaSha256(b []byte) Uint256 {
	first := sha256.Sum256(b)
	return sha256.Sum256(first[:])
}

func Uint256FromBytes(from []byte) Uint256 {
	var result Uint256
	copy(result[:], from)
	return result
}

func Uint256FromString(from string) (Uint256, error) {
	if len(from) != 32*2 {
		return Uint256{}, fmt.Errorf("Incorrect length.")
	}
	b, err := hex.DecodeString(from)
	if err != nil {
		return Uint256{}, err
	}
	for i := 0; i < 16; i++ {
		b[i], b[31-i] = b[31-i], b[i]
	}
	return Uint256FromBytes(b), nil
}
