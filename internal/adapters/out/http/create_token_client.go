// internal/adapters/out/http/create_token_client.go
package httpout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	app "splforge/internal/application/issuance"
	dom "splforge/internal/domain/issuance"
)

// CreateTokenClient posts confirmed issuances to the record-keeping service.
type CreateTokenClient struct {
	baseURL string
	client  *http.Client
}

// baseURL example:
// - Cloud Run: https://xxxxx.asia-northeast1.run.app
// - local: http://localhost:3001
func NewCreateTokenClient(baseURL string) *CreateTokenClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return &CreateTokenClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

var _ app.Recorder = (*CreateTokenClient)(nil)

// Record implements the pipeline's Recorder port. Any non-2xx is RecordingFailed.
func (c *CreateTokenClient) Record(ctx context.Context, rec dom.Record) error {
	if c == nil {
		return fmt.Errorf("%w: create-token client is nil", dom.ErrRecordingFailed)
	}
	if c.baseURL == "" {
		return fmt.Errorf("%w: create-token client baseURL is empty", dom.ErrRecordingFailed)
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", dom.ErrRecordingFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/create-token", bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("%w: %v", dom.ErrRecordingFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", dom.ErrRecordingFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<16))
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	return fmt.Errorf("%w: status=%d body=%s", dom.ErrRecordingFailed, res.StatusCode, strings.TrimSpace(string(body)))
}
