package types

// TransferDetail records the external money transfer a buyer claims to
// have made when paying by transfer. Admins review it before approving
// the order.
type TransferDetail struct {
	PayerPhone            string `json:"payer_phone"`
	ExternalTransactionID string `json:"external_transaction_id"`
	AmountCents           int64  `json:"amount_cents"`
}
