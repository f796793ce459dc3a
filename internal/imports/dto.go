package imports

// ImportJobPayload is the producer/consumer contract for bulk-import jobs.
// Field names are part of the wire format and must not change.
type ImportJobPayload struct {
	S3Key    string `json:"s3_key"`
	Filename string `json:"filename"`
}

// IntakeResult is returned to the client after a file is accepted.
type IntakeResult struct {
	JobID  string `json:"jobId"`
	Queued bool   `json:"queued"`
}

// ProductRow is one parsed spreadsheet row ready for upsert.
type ProductRow struct {
	Line                int
	SKU                 string
	Title               string
	Description         *string
	PriceCents          int64
	CompareAtPriceCents *int64
	StockQty            int
	CategorySlug        string
	ImageKey            string
}
