package block

import (
	"encoding/json"
	"fmt"
	"strconv"

	"foundrchain/core"
	"foundrchain/core/transaction"
)

// GenesisPreviousHash is the previous-hash sentinel of block 0.
const GenesisPreviousHash = "0"

// Block is a committed batch of transactions.
type Block struct {
	Index        uint64                     `json:"index"`
	Timestamp    int64                      `json:"timestamp"` // unix milliseconds
	PreviousHash string                     `json:"previousHash"`
	Transactions []*transaction.Transaction `json:"transactions"`
	MerkleRoot   string                     `json:"merkleRoot"`
	Nonce        uint64                     `json:"nonce"`
	Hash         string                     `json:"hash"`
	Tier         int                        `json:"complexityTier"`
	// Memo carries the fixed descriptive payload of the genesis block.
	Memo string `json:"memo,omitempty"`
}

// blockData is the hashed body of a block.
type blockData struct {
	Index        uint64                     `json:"index"`
	Transactions []*transaction.Transaction `json:"transactions"`
	MerkleRoot   string                     `json:"merkleRoot"`
	Tier         int                        `json:"complexityTier"`
	Memo         string                     `json:"memo,omitempty"`
}

// Data returns the serialized body that goes into the block hash.
func (b *Block) Data() (string, error) {
	txs := b.Transactions
	if txs == nil {
		txs = []*transaction.Transaction{}
	}
	data, err := json.Marshal(blockData{
		Index:        b.Index,
		Transactions: txs,
		MerkleRoot:   b.MerkleRoot,
		Tier:         b.Tier,
		Memo:         b.Memo,
	})
	if err != nil {
		return "", fmt.Errorf("encode block %d: %w", b.Index, err)
	}
	return string(data), nil
}

// ComputeHash returns H(previousHash || timestamp || data || nonce).
func (b *Block) ComputeHash() (string, error) {
	data, err := b.Data()
	if err != nil {
		return "", err
	}
	return hashWith(b.PreviousHash, b.Timestamp, data, b.Nonce), nil
}

func hashWith(prev string, ts int64, data string, nonce uint64) string {
	return core.HashStrings(prev, strconv.FormatInt(ts, 10), data, strconv.FormatUint(nonce, 10))
}

// Serialize encodes Block into JSON
func (b *Block) Serialize() ([]byte, error) {
	return json.Marshal(b)
}

// Deserialize decodes JSON into Block
func Deserialize(data []byte) (*Block, error) {
	var b Block
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
