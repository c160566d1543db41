package chain

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"foundrchain/core"
	"foundrchain/core/block"
	"foundrchain/core/difficulty"
	"foundrchain/core/transaction"
)

// ValuationProof is a self-hashed aggregate over every registration on the
// chain. It is a tamper-evidence digest, not a zero-knowledge proof.
type ValuationProof struct {
	LatestBlockHash     string          `json:"latestBlockHash"`
	LatestBlockIndex    uint64          `json:"latestBlockIndex"`
	ChainLength         uint64          `json:"chainLength"`
	TotalAllocatedUnits decimal.Decimal `json:"totalAllocatedUnits"`
	RegisteredFounders  int             `json:"registeredFounders"`
	UnitValue           decimal.Decimal `json:"unitValue"`
	CurrentValuation    decimal.Decimal `json:"currentValuation"`
	Tier                difficulty.Tier `json:"complexityTier"`
	ProofHash           string          `json:"proofHash"`

	// NodePublicKey and Signature are set when a node key signs the proof.
	NodePublicKey string `json:"nodePublicKey,omitempty"`
	Signature     string `json:"signature,omitempty"`
}

type proofPayload struct {
	LatestBlockHash     string          `json:"latestBlockHash"`
	LatestBlockIndex    uint64          `json:"latestBlockIndex"`
	ChainLength         uint64          `json:"chainLength"`
	TotalAllocatedUnits decimal.Decimal `json:"totalAllocatedUnits"`
	RegisteredFounders  int             `json:"registeredFounders"`
	UnitValue           decimal.Decimal `json:"unitValue"`
	CurrentValuation    decimal.Decimal `json:"currentValuation"`
	Tier                difficulty.Tier `json:"complexityTier"`
}

func (p *ValuationProof) payload() proofPayload {
	return proofPayload{
		LatestBlockHash:     p.LatestBlockHash,
		LatestBlockIndex:    p.LatestBlockIndex,
		ChainLength:         p.ChainLength,
		TotalAllocatedUnits: p.TotalAllocatedUnits,
		RegisteredFounders:  p.RegisteredFounders,
		UnitValue:           p.UnitValue,
		CurrentValuation:    p.CurrentValuation,
		Tier:                p.Tier,
	}
}

// ComputeProofHash hashes every aggregate field of the proof.
func (p *ValuationProof) ComputeProofHash() (string, error) {
	data, err := json.Marshal(p.payload())
	if err != nil {
		return "", fmt.Errorf("encode valuation proof: %w", err)
	}
	return core.HashHex(data), nil
}

// ProveValuation sums every registration allocation in blocks. nodeKey may be nil.
func ProveValuation(blocks []*block.Block, unitValue decimal.Decimal, tier difficulty.Tier, nodeKey ed25519.PrivateKey) (ValuationProof, error) {
	total := decimal.Zero
	founders := make(map[string]struct{})
	for _, b := range blocks {
		for _, tx := range b.Transactions {
			if tx.Kind != transaction.KindRegistration || tx.Registration == nil {
				continue
			}
			total = total.Add(tx.Registration.TotalAllocation)
			founders[tx.Registration.ParticipantID] = struct{}{}
		}
	}

	proof := ValuationProof{
		ChainLength:         uint64(len(blocks)),
		TotalAllocatedUnits: total,
		RegisteredFounders:  len(founders),
		UnitValue:           unitValue,
		CurrentValuation:    total.Mul(unitValue),
		Tier:                tier,
	}
	if n := len(blocks); n > 0 {
		proof.LatestBlockHash = blocks[n-1].Hash
		proof.LatestBlockIndex = blocks[n-1].Index
	}
	hash, err := proof.ComputeProofHash()
	if err != nil {
		return ValuationProof{}, err
	}
	proof.ProofHash = hash

	if nodeKey != nil {
		proof.NodePublicKey = hex.EncodeToString(nodeKey.Public().(ed25519.PublicKey))
		proof.Signature = hex.EncodeToString(ed25519.Sign(nodeKey, []byte(hash)))
	}
	return proof, nil
}

// VerifyProof checks the self-hash and, when present, the node signature.
func VerifyProof(p ValuationProof) bool {
	hash, err := p.ComputeProofHash()
	if err != nil || hash != p.ProofHash {
		return false
	}
	if p.Signature == "" {
		return true
	}
	pub, err := hex.DecodeString(p.NodePublicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, err := hex.DecodeString(p.Signature)
	if err != nil {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), []byte(hash), sig)
}
