// Package httpapi exposes the settlement engine over HTTP in the
// facilitator style: a verify endpoint for local validation, a settle
// endpoint for execution, and a constants endpoint publishing the values
// off-chain signers need.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	settlement "github.com/x402-foundation/x402-settlement"
)

// Server routes settlement traffic to an engine.
type Server struct {
	engine *settlement.Engine
	logger *slog.Logger
	router *gin.Engine
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger overrides the server's logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// NewServer builds the router around an engine.
func NewServer(engine *settlement.Engine, opts ...ServerOption) *Server {
	s := &Server{
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.POST("/settle", s.handleSettle)
	router.POST("/verify", s.handleVerify)
	router.GET("/constants", s.handleConstants)
	s.router = router
	return s
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Info("settlement service listening", "addr", addr)
	return s.router.Run(addr)
}

func (s *Server) handleSettle(c *gin.Context) {
	wire, req, ok := s.decodeRequest(c)
	if !ok {
		return
	}

	var (
		receipt *settlement.Receipt
		outcome settlement.SelfPermitOutcome
		err     error
	)
	if wire.SelfPermit != nil {
		var sp settlement.SelfPermit
		sp, err = wire.SelfPermit.ToSelfPermit()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		outcome, receipt, err = s.engine.SettleWithSelfPermit(c.Request.Context(), sp, req)
	} else {
		receipt, err = s.engine.Settle(c.Request.Context(), req)
	}

	if err != nil {
		reason := errorReason(err)
		s.logger.Info("settlement failed", "reason", reason, "owner", wire.Owner)
		c.JSON(http.StatusOK, SettleResponse{Success: false, ErrorReason: reason})
		return
	}

	s.logger.Info("settlement recorded",
		"owner", receipt.Owner.Hex(), "to", receipt.To.Hex(), "amount", receipt.Amount)
	resp := SettleResponse{
		Success:       true,
		Owner:         receipt.Owner.Hex(),
		To:            receipt.To.Hex(),
		Amount:        receipt.Amount.String(),
		Token:         receipt.Token.Hex(),
		WitnessDigest: receipt.WitnessDigest.Hex(),
	}
	if wire.SelfPermit != nil {
		resp.SelfPermit = outcome.String()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleVerify(c *gin.Context) {
	_, req, ok := s.decodeRequest(c)
	if !ok {
		return
	}
	digest, err := s.engine.Verify(req)
	if err != nil {
		c.JSON(http.StatusOK, VerifyResponse{IsValid: false, InvalidReason: errorReason(err)})
		return
	}
	c.JSON(http.StatusOK, VerifyResponse{IsValid: true, WitnessDigest: digest.Hex()})
}

func (s *Server) handleConstants(c *gin.Context) {
	c.JSON(http.StatusOK, ConstantsResponse{
		DomainName:            settlement.DomainName,
		PermitAuthority:       settlement.PermitAuthorityAddress.Hex(),
		Engine:                settlement.EngineAddress.Hex(),
		DeterministicDeployer: settlement.DeterministicDeployerAddress.Hex(),
		WitnessType:           settlement.WitnessType,
		WitnessTypeString:     settlement.WitnessTypeString,
		WitnessTypehash:       settlement.WitnessTypehash.Hex(),
		PermitWitnessTypehash: settlement.PermitWitnessTypehash.Hex(),
	})
}

// maxBodyBytes caps the request body; a settle payload is a few hundred
// bytes, so a megabyte leaves generous headroom.
const maxBodyBytes = 1 << 20

// decodeRequest reads, schema-checks, and converts the body. On failure it
// writes a 400 and returns ok=false.
func (s *Server) decodeRequest(c *gin.Context) (SettleRequest, settlement.Request, bool) {
	var wire SettleRequest
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return wire, settlement.Request{}, false
	}
	if err := validateSettleBody(body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return wire, settlement.Request{}, false
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return wire, settlement.Request{}, false
	}
	req, err := wire.ToRequest()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return wire, settlement.Request{}, false
	}
	return wire, req, true
}

// errorReason maps engine errors to stable wire codes; delegated errors
// keep their own message.
func errorReason(err error) string {
	var se *settlement.SettlementError
	if errors.As(err, &se) {
		return se.Code
	}
	return err.Error()
}
