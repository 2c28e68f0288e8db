package cache

// Cache keys shared between the API and the worker.
const (
	KeyInventoryList = "inventory:list"
	KeyCompanyList   = "company:list"
)

// KeyDraft returns the key holding a serialised draft invoice.
func KeyDraft(id string) string {
	return "draft:" + id
}

// KeyInvoiceDocument returns the key of a pre-rendered invoice document.
func KeyInvoiceDocument(id, format string) string {
	return "doc:invoice:" + id + ":" + format
}
