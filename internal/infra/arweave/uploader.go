// internal/infra/arweave/uploader.go
package arweave

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// HTTPUploader posts token metadata JSON to an Irys uploader service, which
// pins it on Arweave and answers {"uri": "..."}.
type HTTPUploader struct {
	client  *http.Client
	baseURL string // 例: "https://irys-uploader-xxxx.asia-northeast1.run.app"
	apiKey  string
}

func NewHTTPUploader(baseURL, apiKey string) *HTTPUploader {
	return &HTTPUploader{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
	}
}

// UploadMetadata implements usecase.MetadataUploader.
func (u *HTTPUploader) UploadMetadata(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("arweave: metadata is empty")
	}
	if u.baseURL == "" {
		return "", fmt.Errorf("arweave: baseURL is empty; uploader endpoint not configured")
	}

	log.Printf("[arweave] upload start len=%d", len(data))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/upload/json", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("arweave: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if u.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+u.apiKey)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		log.Printf("[arweave] http request FAILED err=%v", err)
		return "", fmt.Errorf("arweave: upload metadata: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[arweave] upload FAILED status=%d body=%s", resp.StatusCode, string(body))
		return "", fmt.Errorf("arweave: upload failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var res struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("arweave: decode upload response: %w", err)
	}
	if strings.TrimSpace(res.URI) == "" {
		return "", fmt.Errorf("arweave: upload response has empty uri")
	}

	log.Printf("[arweave] upload OK uri=%s", res.URI)
	return res.URI, nil
}
