package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ProposalClient talks to the low-precision face proposal endpoint.
// Proposals carry boxes only; the precise detector is re-run on each region.
type ProposalClient struct {
	client *Client
}

// NewProposalClient creates a proposal client. An empty baseURL falls back
// to the face-analysis server default.
func NewProposalClient(baseURL string) *ProposalClient {
	return &ProposalClient{client: NewClient(strings.TrimSuffix(baseURL, "/"))}
}

// proposalResponse represents the response from the proposal endpoint
type proposalResponse struct {
	BoxesCount int         `json:"boxes_count"`
	Boxes      [][]float64 `json:"boxes"` // [x1, y1, x2, y2] in pixels
}

// ProposeRegions returns candidate face regions as [x1, y1, x2, y2] boxes.
func (p *ProposalClient) ProposeRegions(ctx context.Context, imageData []byte) ([][]float64, error) {
	body, err := p.client.postMultipartImage(ctx, "/propose/face", imageData)
	if err != nil {
		return nil, err
	}

	var resp proposalResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return resp.Boxes, nil
}
