// internal/infra/solana/rpc_client.go
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TokenProgramID is the SPL Token program (Tokenkeg...).
const TokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

// RPCClient covers the jsonParsed calls that the blocto client returns only as raw account data.
type RPCClient interface {
	TokenAccountsByOwner(ctx context.Context, owner, programID string) ([]TokenAccount, error)
}

// TokenAccount is one entry of getTokenAccountsByOwner in jsonParsed encoding.
type TokenAccount struct {
	Pubkey  string `json:"pubkey"`
	Account struct {
		Owner string `json:"owner"`
		Data  struct {
			Program string `json:"program"`
			Parsed  struct {
				Type string           `json:"type"`
				Info TokenAccountInfo `json:"info"`
			} `json:"parsed"`
		} `json:"data"`
	} `json:"account"`
}

func (a TokenAccount) Info() TokenAccountInfo { return a.Account.Data.Parsed.Info }

type TokenAccountInfo struct {
	Mint        string `json:"mint"`
	Owner       string `json:"owner"`
	State       string `json:"state"` // initialized | frozen
	TokenAmount struct {
		Amount   string `json:"amount"`
		Decimals int    `json:"decimals"`
	} `json:"tokenAmount"`
}

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("solana rpc: code=%d %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcEnvelope[T any] struct {
	Result T         `json:"result"`
	Error  *RPCError `json:"error,omitempty"`
}

// JSONRPCClient posts JSON-RPC 2.0 requests to a single endpoint.
type JSONRPCClient struct {
	Endpoint   string
	Commitment string
	HTTP       *http.Client
}

var _ RPCClient = (*JSONRPCClient)(nil)

func NewJSONRPCClient(endpoint string) *JSONRPCClient {
	return &JSONRPCClient{
		Endpoint:   strings.TrimSpace(endpoint),
		Commitment: "confirmed",
		HTTP:       &http.Client{Timeout: 12 * time.Second},
	}
}

// TokenAccountsByOwner lists every account of programID owned by owner.
func (c *JSONRPCClient) TokenAccountsByOwner(ctx context.Context, owner, programID string) ([]TokenAccount, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, fmt.Errorf("solana rpc: owner is empty")
	}
	if programID == "" {
		programID = TokenProgramID
	}
	commitment := c.Commitment
	if commitment == "" {
		commitment = "confirmed"
	}

	type page struct {
		Value []TokenAccount `json:"value"`
	}
	res, err := call[page](ctx, c, "getTokenAccountsByOwner",
		owner,
		map[string]string{"programId": programID},
		map[string]string{"encoding": "jsonParsed", "commitment": commitment},
	)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

func call[T any](ctx context.Context, c *JSONRPCClient, method string, params ...any) (T, error) {
	var zero T
	if c == nil || c.Endpoint == "" || c.HTTP == nil {
		return zero, fmt.Errorf("solana rpc: client not configured")
	}

	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return zero, fmt.Errorf("solana rpc: marshal %s: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return zero, fmt.Errorf("solana rpc: build %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return zero, fmt.Errorf("solana rpc: %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return zero, fmt.Errorf("solana rpc: %s: http %d: %s", method, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var env rpcEnvelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return zero, fmt.Errorf("solana rpc: decode %s: %w", method, err)
	}
	if env.Error != nil {
		return zero, env.Error
	}
	return env.Result, nil
}
