package domain

// Payload/result schemas are tagged per job type so handlers get type-checked
// fields. The raw datatypes.JSON column on
// Job stays untouched for forward compatibility; these types are only a typed
// view over it, decoded/encoded by each handler.

type ThumbnailPayload struct {
	SourceObjectKey string `json:"sourceObjectKey"`
	SourceBucket    string `json:"sourceBucket"`
	UserID          string `json:"userId"`
}

type ThumbnailResult struct {
	Message            string `json:"message"`
	ThumbnailObjectKey string `json:"thumbnailObjectKey"`
}

type TranscriptionPayload struct {
	ProjectID       string `json:"projectId"`
	SourceObjectKey string `json:"sourceObjectKey"`
	SourceBucket    string `json:"sourceBucket"`
}

type TranscriptionResult struct {
	Message         string `json:"message"`
	TextLength      int    `json:"textLength"`
	SegmentCount    int    `json:"segmentCount"`
	Language        string `json:"language"`
	TranscriptionID string `json:"transcriptionId"`
}

type AnalysisPayload struct {
	ProjectID    string `json:"projectId"`
	ShortsCount  *int   `json:"shortsCount,omitempty"`
	CustomPrompt string `json:"customPrompt,omitempty"`
}

type AnalysisShortSummary struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

type AnalysisResult struct {
	Message       string                 `json:"message"`
	ShortsCreated int                    `json:"shortsCreated"`
	Shorts        []AnalysisShortSummary `json:"shorts"`
}

// CuttingPayload and DeliveryPayload are reserved nodes; both handlers are
// placeholders invoked only when explicitly enqueued.
type CuttingPayload struct {
	ProjectID string `json:"projectId,omitempty"`
}

type DeliveryPayload struct {
	ProjectID string `json:"projectId,omitempty"`
}

type PlaceholderResult struct {
	Message string `json:"message"`
}
