package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"power-token-exchange/logger"
	"power-token-exchange/middleware"
	"power-token-exchange/models"
	"power-token-exchange/services"

	"github.com/gofiber/fiber/v2"
)

type testServer struct {
	app      *fiber.App
	store    *services.Store
	registry *services.SessionRegistry
}

func setupApp(t *testing.T) *testServer {
	t.Helper()
	return setupAppWithChain(t, nil)
}

func setupAppWithChain(t *testing.T, chain Chain) *testServer {
	t.Helper()
	logger.SetOutput(io.Discard)

	local, err := services.OpenLocalBackend("")
	if err != nil {
		t.Fatalf("failed to open local backend: %v", err)
	}
	t.Cleanup(func() { local.Close() })

	store := services.NewStore(nil, local, models.NewBalance(1000))
	registry := services.NewSessionRegistry(time.Hour)
	market, err := services.NewMarketplaceService(store, 0)
	if err != nil {
		t.Fatalf("failed to create marketplace: %v", err)
	}

	app := fiber.New()
	SetupSessionRoutes(app, store, registry)
	SetupAccountRoutes(app, store, services.NewMintService(store, nil, nil), registry)
	SetupWalletRoutes(app, store, services.NewWalletService(nil, store, registry), registry)
	SetupMarketplaceRoutes(app, market, registry)
	SetupChainRoutes(app, chain, store, registry)

	return &testServer{app: app, store: store, registry: registry}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(middleware.SessionHeader, token)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	out, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, out
}

func (s *testServer) openSession(t *testing.T) string {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/session", "", nil)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	var view sessionResponse
	if err := json.Unmarshal(body, &view); err != nil || view.SessionToken == "" {
		t.Fatalf("no session token in %s", body)
	}
	return view.SessionToken
}

func (s *testServer) register(t *testing.T, token string) {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/auth/register", token, map[string]string{
		"name": "Demo", "email": "demo@example.com", "password": "pw",
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", resp.StatusCode, body)
	}
}

// --- sessions ---

func TestSecuredRoutesNeedSession(t *testing.T) {
	s := setupApp(t)

	for _, path := range []string{"/me", "/transactions", "/rewards", "/nfts"} {
		if resp, _ := s.do(t, http.MethodGet, path, "", nil); resp.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("%s without token: expected 401, got %d", path, resp.StatusCode)
		}
		if resp, _ := s.do(t, http.MethodGet, path, "bogus", nil); resp.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("%s with unknown token: expected 401, got %d", path, resp.StatusCode)
		}
	}
}

func TestRegisterFallsBackToLocal(t *testing.T) {
	s := setupApp(t)
	token := s.openSession(t)
	s.register(t, token)

	resp, body := s.do(t, http.MethodGet, "/me", token, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var view struct {
		Mode    string                 `json:"mode"`
		Account map[string]interface{} `json:"account"`
	}
	json.Unmarshal(body, &view)
	if view.Mode != "local" {
		t.Errorf("expected local mode, got %s", view.Mode)
	}
	if view.Account["balance"] != "1000 PT" || view.Account["email"] != "demo@example.com" {
		t.Errorf("unexpected account: %v", view.Account)
	}
}

func TestLoginAndLogout(t *testing.T) {
	s := setupApp(t)
	token := s.openSession(t)
	s.register(t, token)

	if resp, _ := s.do(t, http.MethodPost, "/auth/logout", token, nil); resp.StatusCode != fiber.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}
	if resp, _ := s.do(t, http.MethodGet, "/me", token, nil); resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}

	resp, _ := s.do(t, http.MethodPost, "/auth/login", token, map[string]string{"email": "demo@example.com", "password": "bad"})
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("bad password: expected 401, got %d", resp.StatusCode)
	}
	resp, body := s.do(t, http.MethodPost, "/auth/login", token, map[string]string{"email": "demo@example.com", "password": "pw"})
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("login: expected 200, got %d: %s", resp.StatusCode, body)
	}
}

func TestResumeSessionRestoresLocalAccount(t *testing.T) {
	s := setupApp(t)
	token := s.openSession(t)
	s.register(t, token)

	resp, body := s.do(t, http.MethodPost, "/session", "", nil)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var view sessionResponse
	json.Unmarshal(body, &view)
	if view.Mode != services.ModeLocal || view.Account == nil || view.Account.Email != "demo@example.com" {
		t.Errorf("new session did not pick up the local account: %s", body)
	}
}

// --- records ---

func TestTransactionsRoundTrip(t *testing.T) {
	s := setupApp(t)
	token := s.openSession(t)
	s.register(t, token)

	resp, body := s.do(t, http.MethodPost, "/transactions", token, map[string]interface{}{
		"transaction_type": "buy", "amount": 100, "price": 0.05,
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}

	resp, body = s.do(t, http.MethodGet, "/transactions", token, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var txs []models.Transaction
	json.Unmarshal(body, &txs)
	if len(txs) != 1 || txs[0].Amount != 100 || txs[0].TokenKind != models.TokenPower {
		t.Errorf("unexpected transactions: %s", body)
	}

	if resp, _ := s.do(t, http.MethodGet, "/transactions?user_id=other", token, nil); resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("foreign account: expected 403, got %d", resp.StatusCode)
	}

	resp, body = s.do(t, http.MethodPost, "/transactions", token, map[string]interface{}{"transaction_type": "gift", "amount": 1})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("invalid tx: expected 400, got %d: %s", resp.StatusCode, body)
	}
}

func TestTransactionsExport(t *testing.T) {
	s := setupApp(t)
	token := s.openSession(t)
	s.register(t, token)

	resp, body := s.do(t, http.MethodGet, "/transactions/export", token, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("unexpected content type %s", ct)
	}
	// xlsx files are zip archives
	if len(body) < 2 || string(body[:2]) != "PK" {
		t.Error("body is not an xlsx workbook")
	}
}

func TestUpdateBalance(t *testing.T) {
	s := setupApp(t)
	token := s.openSession(t)
	s.register(t, token)

	resp, body := s.do(t, http.MethodPut, "/balance", token, map[string]string{"balance": "500 PT"})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	_, body = s.do(t, http.MethodGet, "/me", token, nil)
	var view struct {
		Account map[string]interface{} `json:"account"`
	}
	json.Unmarshal(body, &view)
	if view.Account["balance"] != "500 PT" {
		t.Errorf("expected 500 PT, got %v", view.Account["balance"])
	}

	if resp, _ := s.do(t, http.MethodPut, "/balance", token, map[string]string{"balance": "lots"}); resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("malformed balance: expected 400, got %d", resp.StatusCode)
	}
}

func TestClaimRewardOnce(t *testing.T) {
	s := setupApp(t)
	token := s.openSession(t)
	s.register(t, token)

	resp, body := s.do(t, http.MethodPost, "/rewards", token, map[string]interface{}{
		"title": "Trade 100 Energy Units", "progress": 100, "reward_type": "Bronze NFT",
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	var reward models.Reward
	json.Unmarshal(body, &reward)

	var claim struct {
		NewClaim bool              `json:"new_claim"`
		NFT      *models.CreditNFT `json:"nft"`
	}
	_, body = s.do(t, http.MethodPost, "/rewards/"+reward.ID+"/claim", token, nil)
	json.Unmarshal(body, &claim)
	if !claim.NewClaim || claim.NFT == nil || claim.NFT.Tier != models.TierBronze {
		t.Errorf("first claim: unexpected %s", body)
	}

	claim.NewClaim, claim.NFT = false, nil
	_, body = s.do(t, http.MethodPost, "/rewards/"+reward.ID+"/claim", token, nil)
	json.Unmarshal(body, &claim)
	if claim.NewClaim || claim.NFT != nil {
		t.Errorf("second claim: unexpected %s", body)
	}

	_, body = s.do(t, http.MethodGet, "/nfts", token, nil)
	var nfts []models.CreditNFT
	json.Unmarshal(body, &nfts)
	if len(nfts) != 1 {
		t.Errorf("expected 1 nft, got %d", len(nfts))
	}
}

func TestMintWithoutChain(t *testing.T) {
	s := setupApp(t)
	token := s.openSession(t)
	s.register(t, token)

	resp, _ := s.do(t, http.MethodPost, "/nfts/whatever/mint", token, nil)
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Errorf("expected 502, got %d", resp.StatusCode)
	}
}

// --- wallet and marketplace ---

func TestListingsArePublic(t *testing.T) {
	s := setupApp(t)

	resp, body := s.do(t, http.MethodGet, "/listings?kind=power_token", "", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var listings []models.Listing
	json.Unmarshal(body, &listings)
	if len(listings) != 6 {
		t.Errorf("expected 6 power listings, got %d", len(listings))
	}

	if resp, _ := s.do(t, http.MethodGet, "/listings?kind=stocks", "", nil); resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("unknown kind: expected 400, got %d", resp.StatusCode)
	}
}

func TestBuyFlow(t *testing.T) {
	s := setupApp(t)
	token := s.openSession(t)
	s.register(t, token)

	resp, _ := s.do(t, http.MethodPost, "/listings/1/buy", token, nil)
	if resp.StatusCode != fiber.StatusPreconditionFailed {
		t.Errorf("buy without wallet: expected 412, got %d", resp.StatusCode)
	}

	resp, body := s.do(t, http.MethodPut, "/wallet", token, map[string]string{"address": "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("link wallet: expected 200, got %d: %s", resp.StatusCode, body)
	}

	resp, body = s.do(t, http.MethodPost, "/listings/1/buy", token, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("buy: expected 200, got %d: %s", resp.StatusCode, body)
	}
	var bought struct {
		Account map[string]interface{} `json:"account"`
	}
	json.Unmarshal(body, &bought)
	if bought.Account["balance"] != "1100 PT" {
		t.Errorf("expected 1100 PT, got %v", bought.Account["balance"])
	}

	resp, body = s.do(t, http.MethodPost, "/listings/2/buy?kind=carbon_credit", token, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("buy nft: expected 200, got %d: %s", resp.StatusCode, body)
	}

	resp, body = s.do(t, http.MethodPost, "/checkout", token, map[string]interface{}{
		"items": []map[string]interface{}{{"listing_id": 2, "quantity": 1}},
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("checkout: expected 200, got %d: %s", resp.StatusCode, body)
	}

	if resp, _ := s.do(t, http.MethodPost, "/listings/abc/buy", token, nil); resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateListingInsufficientBalance(t *testing.T) {
	s := setupApp(t)
	token := s.openSession(t)
	s.register(t, token)
	s.do(t, http.MethodPut, "/wallet", token, map[string]string{"address": "0xabcdef0123456789"})

	resp, _ := s.do(t, http.MethodPost, "/listings/power", token, map[string]float64{"amount": 5000, "price": 1})
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", resp.StatusCode)
	}
	resp, body := s.do(t, http.MethodPost, "/listings/power", token, map[string]float64{"amount": 10, "price": 0.005})
	if resp.StatusCode != fiber.StatusCreated {
		t.Errorf("expected 201, got %d: %s", resp.StatusCode, body)
	}
}

func TestWalletConnectWithoutProvider(t *testing.T) {
	s := setupApp(t)
	token := s.openSession(t)

	resp, _ := s.do(t, http.MethodPost, "/wallet/connect", token, nil)
	if resp.StatusCode != fiber.StatusPreconditionFailed {
		t.Errorf("expected 412, got %d", resp.StatusCode)
	}
}

func TestChainRoutesUnavailable(t *testing.T) {
	s := setupApp(t)
	resp, _ := s.do(t, http.MethodGet, "/chain/listings", "", nil)
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestRespondErrorCancelled(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return respondError(c, context.Canceled) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusRequestTimeout {
		t.Errorf("expected 408, got %d", resp.StatusCode)
	}
}
