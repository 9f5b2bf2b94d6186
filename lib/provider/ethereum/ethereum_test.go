package ethereum

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tarancss/wadp/lib/chain"
	"github.com/tarancss/wadp/lib/provider/types"
)

// testKey and testAddr are the well known first hardhat account.
const (
	testKey  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

// mockHandler answers the json-rpc calls used by the provider.
func mockHandler(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}

	b, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(b, &req)

	var result string

	switch req.Method {
	case "eth_chainId":
		result = "0x5"
	case "eth_getBalance":
		result = "0x16345785d8a0000"
	default:
		rw.WriteHeader(http.StatusBadRequest)

		return
	}

	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": result})
}

func TestEthereum(t *testing.T) {
	mock := httptest.NewServer(http.HandlerFunc(mockHandler))
	defer mock.Close()

	ctx := context.Background()

	e := New(chain.Config{ChainNamespace: chain.EIP155, ChainID: "0x5", RPCTarget: mock.URL})
	if e.Provider() != nil {
		t.Errorf("provider should be nil before setup")
	}

	if err := e.SetupProvider(ctx, "0x"+testKey); err != nil {
		t.Fatalf("SetupProvider err:%v", err)
	}
	defer e.Close()

	p := e.Provider()
	if p == nil {
		t.Fatalf("provider is nil after setup")
	}

	if acc := p.Accounts(); len(acc) != 1 || acc[0] != testAddr {
		t.Errorf("unexpected accounts %v", acc)
	}

	bal, err := p.Balance(ctx, testAddr)
	if err != nil || bal.String() != "100000000000000000" {
		t.Errorf("Balance err:%v bal:%v", err, bal)
	}

	if _, err = p.Balance(ctx, "0x12"); !errors.Is(err, types.ErrBadAccount) {
		t.Errorf("expected ErrBadAccount, got %v", err)
	}
}

func TestEthereumSetupErrors(t *testing.T) {
	mock := httptest.NewServer(http.HandlerFunc(mockHandler))
	defer mock.Close()

	ctx := context.Background()

	cases := []struct {
		name string
		cfg  chain.Config
		key  string
		err  error
	}{
		{"noRPC", chain.Config{ChainID: "0x5"}, testKey, types.ErrNoRPCTarget},
		{"badKey", chain.Config{ChainID: "0x5", RPCTarget: mock.URL}, "zz", types.ErrBadKey},
		{"mismatch", chain.Config{ChainID: "0x1", RPCTarget: mock.URL}, testKey, types.ErrChainMismatch},
	}

	for _, c := range cases {
		e := New(c.cfg)
		if err := e.SetupProvider(ctx, c.key); !errors.Is(err, c.err) {
			t.Errorf("[%s] expected %v got %v", c.name, c.err, err)
		}

		if e.Provider() != nil {
			t.Errorf("[%s] provider should not be set", c.name)
		}
	}
}
