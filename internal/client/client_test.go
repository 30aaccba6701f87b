package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func mustPubkey(t *testing.T, s string) solana.PublicKey {
	t.Helper()
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		t.Fatalf("bad pubkey %q: %v", s, err)
	}
	return pk
}

func rpcServer(t *testing.T, result string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":%s}`, result)
	}))
}

func TestTokenAccountsByOwner_SkipsEmptyAccountData(t *testing.T) {
	// One populated entry, one with empty account data. Only the populated
	// one must survive the scan.
	result := `{"context":{"slot":1},"value":[
		{"pubkey":"4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T",
		 "account":{"lamports":2039280,"owner":"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
		  "data":["AQID","base64"],"executable":false,"rentEpoch":0}},
		{"pubkey":"8qbHbw2BbbTHBW1sbeqakYXVKRQM8Ne7pLK7m6CVfeR3",
		 "account":{"lamports":2039280,"owner":"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
		  "data":["","base64"],"executable":false,"rentEpoch":0}}
	]}`
	server := rpcServer(t, result)
	defer server.Close()

	c := NewClient(ClientConfig{RPCEndpoint: server.URL}, quietLogger())

	owner := mustPubkey(t, "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU")
	accounts, err := c.TokenAccountsByOwner(context.Background(), owner)
	if err != nil {
		t.Fatalf("TokenAccountsByOwner: %v", err)
	}

	if len(accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(accounts))
	}
	if accounts[0].Lamports != 2039280 {
		t.Errorf("unexpected lamports %d", accounts[0].Lamports)
	}
	if want := []byte{1, 2, 3}; string(accounts[0].Data) != string(want) {
		t.Errorf("unexpected account data %v", accounts[0].Data)
	}
}

func TestTokenAccountsByOwner_Empty(t *testing.T) {
	server := rpcServer(t, `{"context":{"slot":1},"value":[]}`)
	defer server.Close()

	c := NewClient(ClientConfig{RPCEndpoint: server.URL}, quietLogger())

	owner := mustPubkey(t, "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU")
	accounts, err := c.TokenAccountsByOwner(context.Background(), owner)
	if err != nil {
		t.Fatalf("TokenAccountsByOwner: %v", err)
	}
	if len(accounts) != 0 {
		t.Fatalf("expected no accounts, got %d", len(accounts))
	}
}
