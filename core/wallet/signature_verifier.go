package wallet

import (
	"fmt"

	"foundrchain/core/audit"
	"foundrchain/core/transaction"
)

// VerifyTransaction looks up the wallet named by tx and verifies its signature.
func (m *Manager) VerifyTransaction(tx *transaction.Transaction) error {
	pub, err := m.PublicKey(tx.WalletID())
	if err != nil {
		return err
	}
	if err := transaction.Verify(tx, pub); err != nil {
		m.audit.LogEvent(audit.AuditEvent{
			EventType: audit.EventSignatureInvalid,
			EntityID:  tx.Hash,
			Result:    "failure",
			Reason:    err.Error(),
			Metadata:  map[string]string{"wallet": tx.WalletID()},
		})
		return fmt.Errorf("tx %s: %w", tx.Hash, err)
	}
	return nil
}
