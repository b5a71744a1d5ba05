package debugsrv

// server_test.go — drives the router directly with httptest, the way
// cmd/explorer/server_test.go exercises its own mux.Router without a
// real listener.

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"

	"grug/abci"
	"grug/db"
	"grug/dex"
	"grug/execute"
	"grug/query"
	"grug/store"
	"grug/types"
	"grug/wasmhost"
)

type noopInvoker struct{}

func (noopInvoker) Invoke(entryPoint string, contract types.Address, codeHash types.Hash256, env *wasmhost.Environment, ctx, msg json.RawMessage) (*types.Response, error) {
	return nil, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	database := db.NewDb()
	pipeline := execute.NewPipeline(noopInvoker{}, nil, nil)
	dexMgr := dex.NewManager(dex.NewState(), pipeline.State)
	adapter := abci.NewAdapter(database, pipeline, dexMgr)
	return NewServer(":0", adapter)
}

func TestHandleStatusReportsZeroBeforeAnyBlock(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rr := httptest.NewRecorder()
	srv.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var info abci.ResponseInfo
	if err := json.Unmarshal(rr.Body.Bytes(), &info); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if info.LastBlockHeight != 0 {
		t.Fatalf("LastBlockHeight = %d, want 0", info.LastBlockHeight)
	}
}

func TestHandleStoreMissingKeyReturns404(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/store/absent-key", nil)
	rr := httptest.NewRecorder()
	srv.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestHandleStoreReturnsCommittedValue(t *testing.T) {
	srv := newTestServer(t)
	buf := store.NewBuffer(srv.adapter.Db.Storage())
	buf.Write([]byte("probe-key"), []byte("probe-value"))
	if _, _, err := srv.adapter.Db.FlushButNotCommit(buf.PendingBatch()); err != nil {
		t.Fatalf("FlushButNotCommit: %v", err)
	}
	if err := srv.adapter.Db.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/store/probe-key", nil)
	rr := httptest.NewRecorder()
	srv.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp abci.ResponseQuery
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(resp.Value) != "probe-value" {
		t.Fatalf("value = %q, want %q", resp.Value, "probe-value")
	}
}

func TestHandleQueryDispatchesBalance(t *testing.T) {
	srv := newTestServer(t)
	addr := types.Address{}
	addr[19] = 7
	srv.adapter.Pipeline.State.SaveBalance(srv.adapter.Db.Storage(), addr, mustCoins(t, "ugrug", 9))

	q := query.Query{Kind: query.KindBalance, Balance: &query.BalanceQuery{Address: addr, Denom: "ugrug"}}
	body, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal query: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	srv.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestRateLimiterReturns429WhenExhausted(t *testing.T) {
	srv := newTestServer(t)
	srv.limiter = rate.NewLimiter(1, 1)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rr := httptest.NewRecorder()
	srv.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rr.Code)
	}

	rr2 := httptest.NewRecorder()
	srv.router.ServeHTTP(rr2, req)
	if rr2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rr2.Code)
	}
}

func mustCoins(t *testing.T, denom string, amount int64) types.Coins {
	t.Helper()
	d, err := types.NewDenom(denom)
	if err != nil {
		t.Fatalf("NewDenom: %v", err)
	}
	coin, err := types.NewCoin(d, big.NewInt(amount))
	if err != nil {
		t.Fatalf("NewCoin: %v", err)
	}
	coins, err := types.NewCoins(coin)
	if err != nil {
		t.Fatalf("NewCoins: %v", err)
	}
	return coins
}
