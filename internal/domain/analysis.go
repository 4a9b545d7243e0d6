package domain

// AnalysisResult is one report from the remote analysis endpoint for a
// capturing participant. Reports overwrite each other, never merge.
// Field names follow the endpoint's JSON so absent fields decode to
// their zero values.
type AnalysisResult struct {
	ConfidenceLevel  int  `json:"confidence_level"`
	AttentionLevel   int  `json:"attention_level"`
	ThinkingLevel    int  `json:"thinking_level"`
	IsDeviceDetected bool `json:"isDeviceDetected"`
}
