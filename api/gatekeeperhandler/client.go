package gatekeeperhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ruteri/zkkb/interfaces"
)

// Client talks to a gatekeeper server.
type Client struct {
	BaseURL string
	Client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimSuffix(baseURL, "/"), Client: http.DefaultClient}
}

// SetRoot registers newRoot for a board. proof may be nil for the first root.
func (c *Client) SetRoot(ctx context.Context, boardID, newRoot string, proof *interfaces.MembershipProof) (*RootResponse, error) {
	var resp RootResponse
	err := c.do(ctx, http.MethodPut, c.boardPath(boardID, "root"), SetRootRequest{Root: newRoot, Proof: proof}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetRoot(ctx context.Context, boardID string) (*RootResponse, error) {
	var resp RootResponse
	if err := c.do(ctx, http.MethodGet, c.boardPath(boardID, "root"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitAction sends a proof-gated action. Rejections are returned as the
// matching interfaces sentinel errors.
func (c *Client) SubmitAction(ctx context.Context, boardID string, proof *interfaces.MembershipProof) (*ActionResponse, error) {
	var resp ActionResponse
	if err := c.do(ctx, http.MethodPost, c.boardPath(boardID, "actions"), proof, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) boardPath(boardID, suffix string) string {
	return fmt.Sprintf("%s/api/boards/%s/%s", c.BaseURL, url.PathEscape(boardID), suffix)
}

func (c *Client) do(ctx context.Context, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("could not initialize request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("could not reach gatekeeper: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read gatekeeper response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("could not parse gatekeeper response: %w", err)
	}
	return nil
}

func decodeError(status int, body []byte) error {
	var e ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		return fmt.Errorf("gatekeeper returned %d: %s", status, string(body))
	}

	var sentinel error
	switch e.Code {
	case codeInvalidInput:
		sentinel = interfaces.ErrInvalidInput
	case codeNotAuthorized:
		sentinel = interfaces.ErrNotAuthorized
	case codeStaleRoot:
		sentinel = interfaces.ErrStaleAuthorization
	case codeNullifierUsed:
		sentinel = interfaces.ErrNullifierUsed
	case codeBoardNotFound:
		sentinel = interfaces.ErrBoardNotFound
	default:
		return fmt.Errorf("gatekeeper returned %d: %s", status, e.Error)
	}
	return fmt.Errorf("%w: %s", sentinel, e.Error)
}
