package constants

// PageStatus is the canonical status for rows in payslips.
type PageStatus string

// Stable values (store these exact strings in DB).
const (
	PageStatusParsed   PageStatus = "PARSED"   // heuristic parse only
	PageStatusVerified PageStatus = "VERIFIED" // parse corrected by the vision pass
	PageStatusFailed   PageStatus = "FAILED"   // text extraction or verification failed
)

// Quality summarises how much of the worker identity a page yielded.
type Quality string

const (
	QualityComplete Quality = "complete"
	QualityPartial  Quality = "partial"
	QualityMissing  Quality = "missing"
)
