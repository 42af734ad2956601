package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"numerusx/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.SolanaConfig{RPCURL: srv.URL, Timeout: 2 * time.Second})
}

func rpcResult(t *testing.T, w http.ResponseWriter, result string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`))
}

func TestLatestBlockhash(t *testing.T) {
	var gotMethod string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		gotMethod = req.Method
		rpcResult(t, w, `{"context":{"slot":270000000},"value":{"blockhash":"HashAAA","lastValidBlockHeight":251000500}}`)
	})

	bh, err := c.LatestBlockhash(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != "getLatestBlockhash" {
		t.Fatalf("unexpected method %q", gotMethod)
	}
	if bh.Blockhash != "HashAAA" || bh.LastValidBlockHeight != 251000500 {
		t.Fatalf("unexpected blockhash %+v", bh)
	}
}

func TestSendTransaction(t *testing.T) {
	var gotParams []any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Params []any `json:"params"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		gotParams = req.Params
		rpcResult(t, w, `"SigAAA111"`)
	})

	sig, err := c.SendTransaction(context.Background(), "AQAB")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig != "SigAAA111" {
		t.Fatalf("unexpected signature %q", sig)
	}
	if len(gotParams) != 2 || gotParams[0] != "AQAB" {
		t.Fatalf("unexpected params %+v", gotParams)
	}
}

func TestSendTransactionEmpty(t *testing.T) {
	c := NewClient(config.SolanaConfig{})
	if _, err := c.SendTransaction(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty transaction")
	}
}

func TestSendTransactionRPCError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32002,"message":"Transaction simulation failed"}}`))
	})
	_, err := c.SendTransaction(context.Background(), "AQAB")
	if err == nil {
		t.Fatal("expected rpc error")
	}
}

func TestSignatureStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rpcResult(t, w, `{"context":{"slot":270000100},"value":[{"slot":270000050,"confirmations":12,"confirmationStatus":"confirmed","err":null}]}`)
	})

	status, err := c.SignatureStatus(context.Background(), "SigAAA111")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status == nil || !status.Confirmed() {
		t.Fatalf("expected confirmed status, got %+v", status)
	}
	if status.Failed() {
		t.Fatal("status should not be failed")
	}
}

func TestSignatureStatusUnknown(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rpcResult(t, w, `{"context":{"slot":270000100},"value":[null]}`)
	})
	status, err := c.SignatureStatus(context.Background(), "SigUnknown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Confirmed() || status.Failed() {
		t.Fatal("nil status should be neither confirmed nor failed")
	}
}

func TestSignatureStatusFailed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rpcResult(t, w, `{"context":{"slot":270000100},"value":[{"slot":270000050,"confirmationStatus":"confirmed","err":{"InstructionError":[0,"Custom"]}}]}`)
	})
	status, err := c.SignatureStatus(context.Background(), "SigBad")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Failed() {
		t.Fatal("expected failed status")
	}
	if status.Confirmed() {
		t.Fatal("failed transaction must not report confirmed")
	}
}

func TestBalance(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rpcResult(t, w, `{"context":{"slot":270000100},"value":1500000000}`)
	})
	lamports, err := c.Balance(context.Background(), "WalletPubkey111")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lamports != 1500000000 {
		t.Fatalf("unexpected balance %d", lamports)
	}
}
