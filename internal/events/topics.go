package events

// Topic constants for domain events emitted by the service.
const (
	TopicInvoiceFinalized      = "invoice.finalized"
	TopicCompanyCreated        = "company.created"
	TopicCompanyBalanceUpdated = "company.balance_updated"
	TopicInventoryCreated      = "inventory.created"
)

// DefaultTopics returns the canonical list of topics.
func DefaultTopics() []string {
	return []string{
		TopicInvoiceFinalized,
		TopicCompanyCreated,
		TopicCompanyBalanceUpdated,
		TopicInventoryCreated,
	}
}
