package httpapi

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	settlement "github.com/x402-foundation/x402-settlement"
	"github.com/x402-foundation/x402-settlement/authority"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	srvChainID = big.NewInt(84532)
	srvToken   = common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e")
	srvPayee   = common.HexToAddress("0x00000000000000000000000000000000000b0b0b")
)

type serverFixture struct {
	t      *testing.T
	now    time.Time
	ledger *authority.Ledger
	auth   *authority.Authority
	server *Server
	key    *ecdsa.PrivateKey
	owner  common.Address
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	f := &serverFixture{t: t, now: time.Unix(1_700_000_000, 0)}
	clock := func() time.Time { return f.now }

	f.ledger = authority.NewLedger(srvChainID)
	f.ledger.SetClock(clock)
	f.ledger.CreateToken(srvToken, "USD Coin")

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	f.key = key
	f.owner = crypto.PubkeyToAddress(key.PublicKey)

	f.auth = authority.New(srvChainID, settlement.EngineAddress, f.ledger, authority.WithClock(clock))

	require.NoError(t, f.ledger.Mint(srvToken, f.owner, big.NewInt(10_000)))
	require.NoError(t, f.ledger.Approve(srvToken, f.owner, f.auth.Address(), authority.MaxAllowance()))

	engine, err := settlement.NewEngine(f.auth,
		settlement.WithClock(clock),
		settlement.WithTokenPermitter(f.auth),
	)
	require.NoError(t, err)
	f.server = NewServer(engine)
	return f
}

// wireRequest builds a fully signed request body in wire form.
func (f *serverFixture) wireRequest(nonce, amount int64) SettleRequest {
	f.t.Helper()
	permit := settlement.Permit{
		Permitted: settlement.TokenPermissions{Token: srvToken, Amount: big.NewInt(amount)},
		Nonce:     big.NewInt(nonce),
		Deadline:  big.NewInt(f.now.Unix() + 600),
	}
	witness := settlement.Witness{
		To:          srvPayee,
		ValidAfter:  big.NewInt(f.now.Unix() - 60),
		ValidBefore: big.NewInt(f.now.Unix() + 600),
	}
	sig, err := settlement.Sign(f.key, srvChainID, f.auth.Address(), settlement.EngineAddress, permit, witness)
	require.NoError(f.t, err)

	var wire SettleRequest
	wire.Permit.Permitted.Token = srvToken.Hex()
	wire.Permit.Permitted.Amount = permit.Permitted.Amount.String()
	wire.Permit.Nonce = permit.Nonce.String()
	wire.Permit.Deadline = permit.Deadline.String()
	wire.Amount = big.NewInt(amount).String()
	wire.Owner = f.owner.Hex()
	wire.Witness.Extra = "0x"
	wire.Witness.To = srvPayee.Hex()
	wire.Witness.ValidAfter = witness.ValidAfter.String()
	wire.Witness.ValidBefore = witness.ValidBefore.String()
	wire.Signature = hexutil.Encode(sig)
	return wire
}

func (f *serverFixture) post(path string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(f.t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServerSettle(t *testing.T) {
	f := newServerFixture(t)
	rec := f.post("/settle", f.wireRequest(1, 100))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SettleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, f.owner.Hex(), resp.Owner)
	assert.Equal(t, srvPayee.Hex(), resp.To)
	assert.Equal(t, "100", resp.Amount)
	assert.Empty(t, resp.SelfPermit)

	assert.Equal(t, int64(100), f.ledger.BalanceOf(srvToken, srvPayee).Int64())
}

func TestServerSettleFailureIsHTTP200(t *testing.T) {
	f := newServerFixture(t)
	wire := f.wireRequest(1, 100)
	wire.Amount = "101"

	rec := f.post("/settle", wire)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SettleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, settlement.ErrCodeAmountExceedsPermitted, resp.ErrorReason)
}

func TestServerSettleReplayReason(t *testing.T) {
	f := newServerFixture(t)
	wire := f.wireRequest(1, 100)

	first := f.post("/settle", wire)
	require.Equal(t, http.StatusOK, first.Code)

	second := f.post("/settle", wire)
	var resp SettleResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	// Delegated failures surface with the authority's own wording.
	assert.Equal(t, authority.ErrNonceUsed.Error(), resp.ErrorReason)
}

func TestServerSettleWithSelfPermit(t *testing.T) {
	f := newServerFixture(t)
	require.NoError(t, f.ledger.Approve(srvToken, f.owner, f.auth.Address(), big.NewInt(0)))

	value, deadline := big.NewInt(500), big.NewInt(f.now.Unix()+600)
	digest, err := f.ledger.PermitDigest(srvToken, f.owner, f.auth.Address(), value, deadline)
	require.NoError(t, err)
	sig, err := crypto.Sign(digest.Bytes(), f.key)
	require.NoError(t, err)
	sig[64] += 27

	wire := f.wireRequest(1, 100)
	wire.SelfPermit = &SelfPermitJSON{
		Value:     value.String(),
		Deadline:  deadline.String(),
		Signature: hexutil.Encode(sig),
	}

	rec := f.post("/settle", wire)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SettleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "applied", resp.SelfPermit)
}

func TestServerSettleBadRequests(t *testing.T) {
	f := newServerFixture(t)

	t.Run("missing fields", func(t *testing.T) {
		rec := f.post("/settle", map[string]any{"amount": "100"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong field type", func(t *testing.T) {
		rec := f.post("/settle", map[string]any{
			"permit": map[string]any{}, "amount": 100, "owner": f.owner.Hex(),
			"witness": map[string]any{}, "signature": "0x",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid address", func(t *testing.T) {
		wire := f.wireRequest(1, 100)
		wire.Owner = "not-an-address"
		rec := f.post("/settle", wire)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("negative amount", func(t *testing.T) {
		wire := f.wireRequest(1, 100)
		wire.Amount = "-1"
		rec := f.post("/settle", wire)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("oversized body", func(t *testing.T) {
		payload := bytes.Repeat([]byte("a"), maxBodyBytes+1)
		req := httptest.NewRequest(http.MethodPost, "/settle", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("short self permit signature", func(t *testing.T) {
		wire := f.wireRequest(1, 100)
		wire.SelfPermit = &SelfPermitJSON{Value: "1", Deadline: "1", Signature: "0x0102"}
		rec := f.post("/settle", wire)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServerVerify(t *testing.T) {
	f := newServerFixture(t)

	t.Run("valid", func(t *testing.T) {
		rec := f.post("/verify", f.wireRequest(1, 100))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp VerifyResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.IsValid)
		assert.NotEmpty(t, resp.WitnessDigest)

		// Verify moves no funds and burns no nonce.
		assert.Zero(t, f.ledger.BalanceOf(srvToken, srvPayee).Sign())
	})

	t.Run("expired window", func(t *testing.T) {
		wire := f.wireRequest(2, 100)
		f.now = f.now.Add(601 * time.Second)
		defer func() { f.now = time.Unix(1_700_000_000, 0) }()

		rec := f.post("/verify", wire)
		var resp VerifyResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.IsValid)
		assert.Equal(t, settlement.ErrCodePaymentExpired, resp.InvalidReason)
	})
}

func TestServerConstants(t *testing.T) {
	f := newServerFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/constants", nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ConstantsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, settlement.DomainName, resp.DomainName)
	assert.Equal(t, settlement.PermitAuthorityAddress.Hex(), resp.PermitAuthority)
	assert.Equal(t, settlement.EngineAddress.Hex(), resp.Engine)
	assert.Equal(t, settlement.WitnessTypeString, resp.WitnessTypeString)
	assert.Equal(t, settlement.WitnessTypehash.Hex(), resp.WitnessTypehash)
}
