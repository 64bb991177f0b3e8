package imagine

// Image is the raw image returned by a provider.
type Image struct {
	// Data contains the raw image bytes
	Data []byte

	// MIMEType reported by the provider (may be empty)
	MIMEType string
}

// DataURI returns the image as a PNG data URI. The media type is always
// image/png regardless of what the provider reported.
func (img *Image) DataURI() string {
	return EncodeDataURI(MIMETypePNG, img.Data)
}

// GenerateResult holds the result of a single generation request.
type GenerateResult struct {
	// Image is the first inline image part of the response
	Image *Image

	// Text contains any text response from the model
	Text string

	// UsageMetadata contains token/billing information
	UsageMetadata *UsageMetadata
}

// UsageMetadata contains usage information for billing and monitoring.
type UsageMetadata struct {
	PromptTokens     int
	CandidatesTokens int
	TotalTokens      int
}
