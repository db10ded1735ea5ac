package main

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bajpainaman/avax-eip8004-sdk/pkg/crosschain"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/httpx"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/proof"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/registry"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/reputation"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/types"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/validation"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/wire"
	"github.com/bajpainaman/avax-eip8004-sdk/services/bridge/internal/transport"
)

type server struct {
	cfg         config
	agents      *registry.Ledger
	feedback    *reputation.Ledger
	validations *validation.Store
	endpoint    *crosschain.Endpoint
	signer      *proof.LocalSigner
	emitter     *proof.Emitter
	verifier    *proof.Verifier
	archive     archive
}

// archive is the durable mirror the handlers write through. *store.Store
// satisfies it; a nil archive means no database is configured.
type archive interface {
	SavePullResult(ctx context.Context, correlationID, messageType string, fromChain uint64, frame []byte) error
	UpsertTrustEntry(ctx context.Context, chainID uint64, counterparty string) error
	SaveVerifiedProof(ctx context.Context, proofType, agentID, secondary string, fields []byte, provenAt time.Time) error
}

func (s *server) router() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	r.Post("/bridge/messages", s.handleInboundMessage)

	r.Route("/bridge/queries", func(api chi.Router) {
		api.Post("/identity", s.handleQueryIdentity)
		api.Post("/reputation", s.handleQueryReputation)
	})
	r.Get("/bridge/results/{correlation_id}", s.handleGetResult)

	r.Route("/admin", func(api chi.Router) {
		api.Put("/trust/{chain_id}", s.handleSetTrust)
		api.Put("/budget", s.handleSetBudget)
	})

	r.Route("/proofs", func(api chi.Router) {
		api.Post("/identity", s.handleEmitIdentityProof)
		api.Post("/reputation", s.handleEmitReputationProof)
		api.Post("/validation", s.handleEmitValidationProof)
		api.Post("/verify", s.handleVerifyProof)
		api.Get("/artifacts/{artifact_id}", s.handleGetArtifact)
	})

	// Local ledger surface: the registry and record stores this chain is
	// authoritative for.
	r.Route("/ledger", func(api chi.Router) {
		api.Post("/agents", s.handleRegisterAgent)
		api.Post("/feedback", s.handleGiveFeedback)
		api.Post("/feedback/revoke", s.handleRevokeFeedback)
		api.Post("/validations", s.handleCreateValidation)
		api.Post("/validations/respond", s.handleRespondValidation)
	})
	return r
}

// --- auth helpers ---

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func tokenMatches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// adminCaller resolves the request to the owner principal, or writes 401.
func (s *server) adminCaller(w http.ResponseWriter, r *http.Request) (types.Address, bool) {
	if !tokenMatches(bearerToken(r), s.cfg.AdminToken) {
		httpx.WriteError(w, 401, "NOT_OWNER", "admin token required", nil)
		return types.ZeroAddress, false
	}
	return s.cfg.Owner, true
}

// --- transport ingress ---

func (s *server) handleInboundMessage(w http.ResponseWriter, r *http.Request) {
	var env transport.Envelope
	if err := httpx.ReadJSON(r, &env); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	// The caller principal is derived from the presented transport token;
	// a wrong token yields a principal the endpoint rejects with
	// ONLY_TRANSPORT rather than a transport-level 401.
	caller := tokenAddress(bearerToken(r))
	fromChain, fromAddr, frame, err := env.Decode()
	if err != nil {
		httpx.WriteError(w, 400, "BAD_ENVELOPE", err.Error(), nil)
		return
	}
	if err := s.endpoint.HandleMessage(r.Context(), caller, fromChain, fromAddr, frame); err != nil {
		httpx.WriteError(w, statusFor(err), err.Error(), "message rejected", nil)
		return
	}
	s.archiveResult(r, fromChain, frame)
	httpx.WriteJSON(w, 202, map[string]any{"request_id": httpx.NewRequestID(), "accepted": true})
}

// archiveResult mirrors accepted result frames into the Postgres archive.
func (s *server) archiveResult(r *http.Request, fromChain types.ChainID, frame []byte) {
	if s.archive == nil {
		return
	}
	t, err := wire.PeekType(frame)
	if err != nil || (t != wire.TypeIdentityResult && t != wire.TypeReputationResult) {
		return
	}
	var corr [32]byte
	copy(corr[:], frame[1:33])
	if err := s.archive.SavePullResult(r.Context(), hex.EncodeToString(corr[:]), t.String(), uint64(fromChain), frame); err != nil {
		slog.Warn("archiving pull result failed", "error", err)
	}
}

// --- pull queries ---

func (s *server) handleQueryIdentity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller      string `json:"caller"`
		TargetChain uint64 `json:"target_chain"`
		AgentID     string `json:"agent_id"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	caller, agent, ok := s.parseCallerAgent(w, req.Caller, req.AgentID)
	if !ok {
		return
	}
	corr, err := s.endpoint.QueryIdentity(r.Context(), caller, types.ChainID(req.TargetChain), agent)
	if err != nil {
		httpx.WriteError(w, statusFor(err), err.Error(), "query rejected", nil)
		return
	}
	httpx.WriteJSON(w, 202, map[string]any{
		"request_id":     httpx.NewRequestID(),
		"correlation_id": hex.EncodeToString(corr[:]),
	})
}

func (s *server) handleQueryReputation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller      string   `json:"caller"`
		TargetChain uint64   `json:"target_chain"`
		AgentID     string   `json:"agent_id"`
		Principals  []string `json:"principals"`
		Tag1        string   `json:"tag1"`
		Tag2        string   `json:"tag2"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	caller, agent, ok := s.parseCallerAgent(w, req.Caller, req.AgentID)
	if !ok {
		return
	}
	principals := make([]types.Address, 0, len(req.Principals))
	for _, p := range req.Principals {
		a, err := types.ParseAddress(p)
		if err != nil {
			httpx.WriteError(w, 400, "BAD_ADDRESS", "bad principal "+p, nil)
			return
		}
		principals = append(principals, a)
	}
	corr, err := s.endpoint.QueryReputation(r.Context(), caller, types.ChainID(req.TargetChain), agent, principals, req.Tag1, req.Tag2)
	if err != nil {
		httpx.WriteError(w, statusFor(err), err.Error(), "query rejected", nil)
		return
	}
	httpx.WriteJSON(w, 202, map[string]any{
		"request_id":     httpx.NewRequestID(),
		"correlation_id": hex.EncodeToString(corr[:]),
	})
}

func (s *server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	corr, err := parseHash32(chi.URLParam(r, "correlation_id"))
	if err != nil {
		httpx.WriteError(w, 400, "BAD_CORRELATION_ID", err.Error(), nil)
		return
	}
	if res, ok := s.endpoint.IdentityResultOf(corr); ok {
		httpx.WriteJSON(w, 200, map[string]any{
			"request_id": httpx.NewRequestID(),
			"status":     "resolved",
			"identity": map[string]any{
				"exists":         res.Exists,
				"owner":          res.Owner.String(),
				"uri":            res.URI,
				"score":          res.Score.String(),
				"feedback_count": res.FeedbackCount,
			},
		})
		return
	}
	if res, ok := s.endpoint.ReputationResultOf(corr); ok {
		httpx.WriteJSON(w, 200, map[string]any{
			"request_id": httpx.NewRequestID(),
			"status":     "resolved",
			"reputation": map[string]any{
				"count": res.Count,
				"value": res.Value.String(),
			},
		})
		return
	}
	if s.endpoint.IsPending(corr) {
		httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "status": "pending"})
		return
	}
	httpx.WriteError(w, 404, "NOT_FOUND", "unknown correlation id", nil)
}

// --- admin ---

func (s *server) handleSetTrust(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.adminCaller(w, r)
	if !ok {
		return
	}
	chainID, err := strconv.ParseUint(chi.URLParam(r, "chain_id"), 10, 64)
	if err != nil {
		httpx.WriteError(w, 400, "BAD_CHAIN_ID", err.Error(), nil)
		return
	}
	var req struct {
		Counterparty string `json:"counterparty"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	counterparty, err := types.ParseAddress(req.Counterparty)
	if err != nil {
		httpx.WriteError(w, 400, "BAD_ADDRESS", err.Error(), nil)
		return
	}
	if err := s.endpoint.SetTrustedCounterparty(caller, types.ChainID(chainID), counterparty); err != nil {
		httpx.WriteError(w, statusFor(err), err.Error(), "trust update rejected", nil)
		return
	}
	if s.archive != nil {
		if err := s.archive.UpsertTrustEntry(r.Context(), chainID, counterparty.String()); err != nil {
			slog.Warn("archiving trust entry failed", "error", err)
		}
	}
	httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "chain_id": chainID, "counterparty": counterparty.String()})
}

func (s *server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.adminCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		Budget uint64 `json:"budget"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	if err := s.endpoint.SetMessageBudget(caller, req.Budget); err != nil {
		httpx.WriteError(w, statusFor(err), err.Error(), "budget update rejected", nil)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "budget": req.Budget})
}

// --- proofs ---

func (s *server) handleEmitIdentityProof(w http.ResponseWriter, r *http.Request) {
	agent, ok := s.readAgentID(w, r)
	if !ok {
		return
	}
	artifactID, err := s.emitter.EmitIdentityProof(r.Context(), agent)
	if err != nil {
		httpx.WriteError(w, statusFor(err), err.Error(), "proof rejected", nil)
		return
	}
	httpx.WriteJSON(w, 201, map[string]any{"request_id": httpx.NewRequestID(), "artifact_id": artifactID})
}

func (s *server) handleEmitReputationProof(w http.ResponseWriter, r *http.Request) {
	agent, ok := s.readAgentID(w, r)
	if !ok {
		return
	}
	artifactID, err := s.emitter.EmitReputationProof(r.Context(), agent)
	if err != nil {
		httpx.WriteError(w, statusFor(err), err.Error(), "proof rejected", nil)
		return
	}
	httpx.WriteJSON(w, 201, map[string]any{"request_id": httpx.NewRequestID(), "artifact_id": artifactID})
}

func (s *server) handleEmitValidationProof(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID     string `json:"agent_id"`
		RequestHash string `json:"request_hash"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	agent, err := types.ParseAgentID(req.AgentID)
	if err != nil {
		httpx.WriteError(w, 400, "BAD_AGENT_ID", err.Error(), nil)
		return
	}
	requestHash, err := parseHash32(req.RequestHash)
	if err != nil {
		httpx.WriteError(w, 400, "BAD_REQUEST_HASH", err.Error(), nil)
		return
	}
	artifactID, err := s.emitter.EmitValidationProof(r.Context(), agent, requestHash)
	if err != nil {
		httpx.WriteError(w, statusFor(err), err.Error(), "proof rejected", nil)
		return
	}
	httpx.WriteJSON(w, 201, map[string]any{"request_id": httpx.NewRequestID(), "artifact_id": artifactID})
}

func (s *server) handleVerifyProof(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProofType string          `json:"proof_type"`
		Artifact  json.RawMessage `json:"artifact"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	var agent types.AgentID
	var err error
	switch strings.ToUpper(strings.TrimSpace(req.ProofType)) {
	case "IDENTITY":
		agent, err = s.verifier.VerifyIdentityProof(r.Context(), req.Artifact)
	case "REPUTATION":
		agent, err = s.verifier.VerifyReputationProof(r.Context(), req.Artifact)
	case "VALIDATION":
		agent, err = s.verifier.VerifyValidationProof(r.Context(), req.Artifact)
	default:
		httpx.WriteError(w, 400, "UNEXPECTED_PROOF_TYPE", "proof_type must be IDENTITY, REPUTATION or VALIDATION", nil)
		return
	}
	if err != nil {
		httpx.WriteError(w, statusFor(err), err.Error(), "proof rejected", nil)
		return
	}
	s.archiveProof(r, strings.ToUpper(strings.TrimSpace(req.ProofType)), agent)
	httpx.WriteJSON(w, 200, map[string]any{
		"request_id": httpx.NewRequestID(),
		"agent_id":   agent.String(),
		"verified":   true,
	})
}

func (s *server) archiveProof(r *http.Request, proofType string, agent types.AgentID) {
	if s.archive == nil {
		return
	}
	var fields any
	var provenAt time.Time
	var secondary string
	switch proofType {
	case "IDENTITY":
		c, ok := s.verifier.Identity(agent)
		if !ok {
			return
		}
		fields, provenAt = map[string]any{"owner": c.Owner.String(), "endpoint": c.Endpoint}, c.ProvenAt
	case "REPUTATION":
		c, ok := s.verifier.Reputation(agent)
		if !ok {
			return
		}
		fields, provenAt = map[string]any{"count": c.Count, "value": c.Value.String(), "scale": c.Scale}, c.ProvenAt
	case "VALIDATION":
		// Validation claims are keyed per validator; the validator address
		// fills the archive's secondary key so claims do not clobber each
		// other. The claim just verified is among those mirrored here.
		for _, c := range s.verifier.Validations(agent) {
			encoded, err := json.Marshal(map[string]any{
				"validator":    c.Validator.String(),
				"response":     c.Response,
				"tag":          c.Tag,
				"request_hash": hex.EncodeToString(c.RequestHash[:]),
			})
			if err != nil {
				continue
			}
			if err := s.archive.SaveVerifiedProof(r.Context(), proofType, agent.String(), c.Validator.String(), encoded, c.ProvenAt); err != nil {
				slog.Warn("archiving verified proof failed", "error", err)
			}
		}
		return
	default:
		return
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return
	}
	if err := s.archive.SaveVerifiedProof(r.Context(), proofType, agent.String(), secondary, encoded, provenAt); err != nil {
		slog.Warn("archiving verified proof failed", "error", err)
	}
}

func (s *server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	b, err := s.signer.ArtifactBytes(chi.URLParam(r, "artifact_id"))
	if err != nil {
		httpx.WriteError(w, 404, "NOT_FOUND", "unknown artifact id", nil)
		return
	}
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(200)
	_, _ = w.Write(b)
}

// --- local ledger ---

func (s *server) handleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID string `json:"agent_id"`
		Owner   string `json:"owner"`
		URI     string `json:"uri"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	agent, err := types.ParseAgentID(req.AgentID)
	if err != nil {
		httpx.WriteError(w, 400, "BAD_AGENT_ID", err.Error(), nil)
		return
	}
	owner, err := types.ParseAddress(req.Owner)
	if err != nil {
		httpx.WriteError(w, 400, "BAD_ADDRESS", err.Error(), nil)
		return
	}
	if err := s.agents.Register(agent, owner, req.URI); err != nil {
		httpx.WriteError(w, statusFor(err), err.Error(), "registration rejected", nil)
		return
	}
	httpx.WriteJSON(w, 201, map[string]any{"request_id": httpx.NewRequestID(), "agent_id": agent.String()})
}

func (s *server) handleGiveFeedback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Author   string   `json:"author"`
		AgentID  string   `json:"agent_id"`
		Value    string   `json:"value"` // decimal mantissa
		Scale    uint8    `json:"scale"`
		Tag1     string   `json:"tag1"`
		Tag2     string   `json:"tag2"`
		Endpoint string   `json:"endpoint"`
		Content  []string `json:"content_refs"`
		Response []string `json:"response_refs"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	author, err := types.ParseAddress(req.Author)
	if err != nil {
		httpx.WriteError(w, 400, "BAD_ADDRESS", err.Error(), nil)
		return
	}
	agent, err := types.ParseAgentID(req.AgentID)
	if err != nil {
		httpx.WriteError(w, 400, "BAD_AGENT_ID", err.Error(), nil)
		return
	}
	value, ok := parseBigInt(req.Value)
	if !ok {
		httpx.WriteError(w, 400, "BAD_VALUE", "value must be a decimal integer", nil)
		return
	}
	index, err := s.feedback.Give(author, agent, value, req.Scale, req.Tag1, req.Tag2, req.Endpoint, req.Content, req.Response)
	if err != nil {
		httpx.WriteError(w, statusFor(err), err.Error(), "feedback rejected", nil)
		return
	}
	httpx.WriteJSON(w, 201, map[string]any{"request_id": httpx.NewRequestID(), "index": index})
}

func (s *server) handleRevokeFeedback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller  string `json:"caller"`
		AgentID string `json:"agent_id"`
		Author  string `json:"author"`
		Index   uint64 `json:"index"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	caller, err := types.ParseAddress(req.Caller)
	if err != nil {
		httpx.WriteError(w, 400, "BAD_ADDRESS", err.Error(), nil)
		return
	}
	author, err := types.ParseAddress(req.Author)
	if err != nil {
		httpx.WriteError(w, 400, "BAD_ADDRESS", err.Error(), nil)
		return
	}
	agent, err := types.ParseAgentID(req.AgentID)
	if err != nil {
		httpx.WriteError(w, 400, "BAD_AGENT_ID", err.Error(), nil)
		return
	}
	if err := s.feedback.Revoke(caller, agent, author, req.Index); err != nil {
		httpx.WriteError(w, statusFor(err), err.Error(), "revoke rejected", nil)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "revoked": true})
}

func (s *server) handleCreateValidation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Requester   string `json:"requester"`
		Validator   string `json:"validator"`
		AgentID     string `json:"agent_id"`
		RequestRef  string `json:"request_ref"`
		RequestHash string `json:"request_hash"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	requester, err := types.ParseAddress(req.Requester)
	if err != nil {
		httpx.WriteError(w, 400, "BAD_ADDRESS", err.Error(), nil)
		return
	}
	validator, err := types.ParseAddress(req.Validator)
	if err != nil {
		httpx.WriteError(w, 400, "BAD_ADDRESS", err.Error(), nil)
		return
	}
	agent, err := types.ParseAgentID(req.AgentID)
	if err != nil {
		httpx.WriteError(w, 400, "BAD_AGENT_ID", err.Error(), nil)
		return
	}
	requestHash, err := parseHash32(req.RequestHash)
	if err != nil {
		httpx.WriteError(w, 400, "BAD_REQUEST_HASH", err.Error(), nil)
		return
	}
	if err := s.validations.Create(requester, validator, agent, req.RequestRef, requestHash); err != nil {
		httpx.WriteError(w, statusFor(err), err.Error(), "validation request rejected", nil)
		return
	}
	httpx.WriteJSON(w, 201, map[string]any{"request_id": httpx.NewRequestID(), "request_hash": req.RequestHash})
}

func (s *server) handleRespondValidation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller      string `json:"caller"`
		RequestHash string `json:"request_hash"`
		Response    string `json:"response"`
		ResponseRef string `json:"response_ref"`
		Tag         string `json:"tag"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	caller, err := types.ParseAddress(req.Caller)
	if err != nil {
		httpx.WriteError(w, 400, "BAD_ADDRESS", err.Error(), nil)
		return
	}
	requestHash, err := parseHash32(req.RequestHash)
	if err != nil {
		httpx.WriteError(w, 400, "BAD_REQUEST_HASH", err.Error(), nil)
		return
	}
	var response validation.Response
	switch strings.ToUpper(strings.TrimSpace(req.Response)) {
	case "APPROVED":
		response = validation.Approved
	case "REJECTED":
		response = validation.Rejected
	case "INCONCLUSIVE":
		response = validation.Inconclusive
	default:
		httpx.WriteError(w, 400, "BAD_RESPONSE", "response must be APPROVED, REJECTED or INCONCLUSIVE", nil)
		return
	}
	if err := s.validations.Respond(caller, requestHash, response, req.ResponseRef, req.Tag); err != nil {
		httpx.WriteError(w, statusFor(err), err.Error(), "response rejected", nil)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "response": response.String()})
}

// --- shared parsing ---

func (s *server) readAgentID(w http.ResponseWriter, r *http.Request) (types.AgentID, bool) {
	var req struct {
		AgentID string `json:"agent_id"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return types.ZeroAgentID, false
	}
	agent, err := types.ParseAgentID(req.AgentID)
	if err != nil {
		httpx.WriteError(w, 400, "BAD_AGENT_ID", err.Error(), nil)
		return types.ZeroAgentID, false
	}
	return agent, true
}

func (s *server) parseCallerAgent(w http.ResponseWriter, callerHex, agentHex string) (types.Address, types.AgentID, bool) {
	caller, err := types.ParseAddress(callerHex)
	if err != nil {
		httpx.WriteError(w, 400, "BAD_ADDRESS", err.Error(), nil)
		return types.ZeroAddress, types.ZeroAgentID, false
	}
	agent, err := types.ParseAgentID(agentHex)
	if err != nil {
		httpx.WriteError(w, 400, "BAD_AGENT_ID", err.Error(), nil)
		return types.ZeroAddress, types.ZeroAgentID, false
	}
	return caller, agent, true
}

func parseHash32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil || len(b) != 32 {
		return out, errors.New("expected 32-byte hex")
	}
	copy(out[:], b)
	return out, nil
}

func parseBigInt(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	return v, ok
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, crosschain.ErrNotOwner):
		return 403
	case errors.Is(err, crosschain.ErrOnlyTransport),
		errors.Is(err, crosschain.ErrUnauthorizedCounterparty):
		return 403
	case errors.Is(err, crosschain.ErrUnknownChain),
		errors.Is(err, proof.ErrAgentNotFound),
		errors.Is(err, proof.ErrRequestNotFound),
		errors.Is(err, registry.ErrAgentNotFound),
		errors.Is(err, validation.ErrRequestNotFound),
		errors.Is(err, reputation.ErrFeedbackNotFound):
		return 404
	case errors.Is(err, registry.ErrAgentAlreadyExists),
		errors.Is(err, validation.ErrRequestAlreadyExists),
		errors.Is(err, validation.ErrRequestAlreadyResponded),
		errors.Is(err, reputation.ErrAlreadyRevoked):
		return 409
	case errors.Is(err, validation.ErrNotDesignatedValidator),
		errors.Is(err, reputation.ErrNotAuthor),
		errors.Is(err, registry.ErrNotAgentOwner):
		return 403
	case errors.Is(err, proof.ErrInvalidOrUnsignedProof),
		errors.Is(err, proof.ErrUnexpectedSchema),
		errors.Is(err, proof.ErrUnexpectedProofType),
		errors.Is(err, proof.ErrWrongSourceChain),
		errors.Is(err, proof.ErrWrongOriginSender):
		return 422
	default:
		return 400
	}
}
