package media

// ImageJobPayload is the producer/consumer contract for image-processing
// jobs. Field names are part of the wire format and must not change.
type ImageJobPayload struct {
	MediaID     int64  `json:"media_id"`
	S3Key       string `json:"s3_key"`
	ContentType string `json:"content_type"`
	EnableAVIF  bool   `json:"enableAvif"`
}

// AssetView is the read model returned by the media status endpoint.
type AssetView struct {
	ID               int64         `json:"id"`
	ProductID        int64         `json:"productId"`
	ProcessingStatus string        `json:"processingStatus"`
	Variants         []VariantView `json:"variants"`
	LastError        *string       `json:"lastError,omitempty"`
}

// VariantView mirrors the persisted variant descriptor.
type VariantView struct {
	Type   string `json:"type"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}
