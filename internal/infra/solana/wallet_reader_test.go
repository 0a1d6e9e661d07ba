package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenAccount(pubkey, mint, amount, state string) string {
	return `{"pubkey":"` + pubkey + `","account":{"owner":"` + TokenProgramID + `","data":{"program":"spl-token","space":165,"parsed":{"type":"account","info":{"mint":"` + mint + `","owner":"owner","state":"` + state + `","tokenAmount":{"amount":"` + amount + `","decimals":0}}}}}}`
}

func TestWalletReader_ListHoldings(t *testing.T) {
	var gotMethod string
	var gotParams []any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotMethod = req.Method
		gotParams, _ = req.Params.([]any)

		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":9},"value":[` +
			tokenAccount("ata1", "mintA", "1", "frozen") + `,` +
			tokenAccount("ata2", "mintB", "0", "initialized") + `,` +
			tokenAccount("ata3", "mintA", "1", "frozen") + `,` +
			tokenAccount("ata4", "mintC", "5", "initialized") + `]}}`))
	}))
	defer srv.Close()

	r := NewWalletReader(srv.URL)
	got, err := r.ListHoldings(context.Background(), " "+testAddr+" ")
	require.NoError(t, err)

	assert.Equal(t, "getTokenAccountsByOwner", gotMethod)
	require.Len(t, gotParams, 3)
	assert.Equal(t, testAddr, gotParams[0])

	require.Len(t, got, 2)
	assert.Equal(t, "mintA", got[0].Mint)
	assert.Equal(t, "ata1", got[0].TokenAccount)
	assert.True(t, got[0].Frozen)
	assert.Equal(t, "mintC", got[1].Mint)
	assert.Equal(t, uint64(5), got[1].Amount)
	assert.False(t, got[1].Frozen)
}

func TestWalletReader_RPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"Invalid param: WrongSize"}}`))
	}))
	defer srv.Close()

	_, err := NewWalletReader(srv.URL).ListHoldings(context.Background(), "bad")
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32602, rpcErr.Code)
	assert.Contains(t, err.Error(), "WrongSize")
}

func TestWalletReader_EmptyOwner(t *testing.T) {
	_, err := NewWalletReader("http://127.0.0.1:1").ListHoldings(context.Background(), "  ")
	assert.Error(t, err)
}
