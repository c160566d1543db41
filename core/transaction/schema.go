package transaction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const documentSchema = `{
  "type": "object",
  "required": ["kind", "timestamp", "nonce", "signature", "hash"],
  "properties": {
    "kind": {"enum": ["registration", "withdrawal"]},
    "timestamp": {"type": "integer", "minimum": 0},
    "nonce": {"type": "string", "minLength": 1},
    "hash": {"type": "string", "pattern": "^[0-9a-f]{64}$"},
    "signature": {
      "type": "object",
      "required": ["algorithm", "value"],
      "properties": {
        "algorithm": {"enum": ["RSA", "Ed25519"]},
        "value": {"type": "string", "minLength": 1}
      }
    },
    "registration": {
      "type": "object",
      "required": ["participantId", "walletId", "totalAllocation", "personalShare", "reinvestmentShare"]
    },
    "withdrawal": {
      "type": "object",
      "required": ["walletId", "amount", "withdrawalKind"]
    }
  },
  "oneOf": [
    {"properties": {"kind": {"enum": ["registration"]}}, "required": ["registration"]},
    {"properties": {"kind": {"enum": ["withdrawal"]}}, "required": ["withdrawal"]}
  ]
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// ValidateDocument checks a persisted transaction document against the schema.
func ValidateDocument(raw []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedTransaction, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrMalformedTransaction, strings.Join(msgs, "; "))
	}
	return nil
}

// DecodeDocuments validates and decodes a JSON array of transaction documents.
func DecodeDocuments(raw []byte) ([]*Transaction, error) {
	var docs []json.RawMessage
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTransaction, err)
	}
	txs := make([]*Transaction, 0, len(docs))
	for i, doc := range docs {
		if err := ValidateDocument(doc); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		var tx Transaction
		if err := json.Unmarshal(doc, &tx); err != nil {
			return nil, fmt.Errorf("entry %d: %w: %v", i, ErrMalformedTransaction, err)
		}
		txs = append(txs, &tx)
	}
	return txs, nil
}
