// Package analysis is the client for the remote frame-analysis
// endpoint used by the capturing role.
package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"time"

	"github.com/okulov/liveclass/internal/domain"
)

const defaultJPEGQuality = 70

// Client submits single frames as base64 JPEG and decodes the result.
// Every failure here is retryable by the capture loop; none is ever
// surfaced to the user.
type Client struct {
	endpoint string
	http     *http.Client
	quality  int
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		quality:  defaultJPEGQuality,
	}
}

type request struct {
	ImageBase64 string `json:"image_base64"`
}

// Analyze encodes one frame and POSTs it. Absent response fields keep
// their zero values.
func (c *Client) Analyze(ctx context.Context, frame image.Image) (domain.AnalysisResult, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: c.quality}); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("encode frame: %w", err)
	}

	body, err := json.Marshal(request{
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("submit frame: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return domain.AnalysisResult{}, fmt.Errorf("analysis endpoint returned %s", resp.Status)
	}

	var result domain.AnalysisResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}
