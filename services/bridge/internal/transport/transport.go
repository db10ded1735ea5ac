// Package transport carries pull-protocol frames between bridge services
// over HTTP. It implements crosschain.Sender on the outbound side and
// decodes the same envelope on ingress. Delivery is at-least-once and
// unordered by design; the receiving endpoint's authentication checks do
// the rest.
package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bajpainaman/avax-eip8004-sdk/pkg/types"
)

var ErrNoRoute = errors.New("NO_ROUTE")

// Envelope is the JSON frame carrier posted to a peer's
// /bridge/messages endpoint.
type Envelope struct {
	FromChain   uint64 `json:"from_chain"`
	FromAddress string `json:"from_address"`
	Frame       string `json:"frame"` // base64 std
	Budget      uint64 `json:"budget"`
}

// HTTPSender posts frames to peer bridge services. Routes map a chain id
// to the peer's base URL.
type HTTPSender struct {
	SelfChain   types.ChainID
	SelfAddress types.Address
	Token       string // bearer token the peer's ingress expects
	Client      *http.Client

	mu     sync.RWMutex
	routes map[types.ChainID]string
}

func NewHTTPSender(selfChain types.ChainID, selfAddress types.Address, token string) *HTTPSender {
	return &HTTPSender{
		SelfChain:   selfChain,
		SelfAddress: selfAddress,
		Token:       token,
		Client:      &http.Client{Timeout: 15 * time.Second},
		routes:      make(map[types.ChainID]string),
	}
}

// SetRoute maps destChain to a peer base URL such as
// "https://bridge.peer.example".
func (s *HTTPSender) SetRoute(destChain types.ChainID, baseURL string) {
	s.mu.Lock()
	s.routes[destChain] = baseURL
	s.mu.Unlock()
}

func (s *HTTPSender) Send(ctx context.Context, destChain types.ChainID, destAddr types.Address, frame []byte, budget uint64) error {
	s.mu.RLock()
	base, ok := s.routes[destChain]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: chain %d", ErrNoRoute, destChain)
	}
	body, err := json.Marshal(Envelope{
		FromChain:   uint64(s.SelfChain),
		FromAddress: s.SelfAddress.String(),
		Frame:       base64.StdEncoding.EncodeToString(frame),
		Budget:      budget,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/bridge/messages", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")
	if s.Token != "" {
		req.Header.Set("authorization", "Bearer "+s.Token)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("peer rejected frame: status %d", resp.StatusCode)
	}
	return nil
}

// Decode unpacks an ingress envelope.
func (e Envelope) Decode() (types.ChainID, types.Address, []byte, error) {
	addr, err := types.ParseAddress(e.FromAddress)
	if err != nil {
		return 0, types.ZeroAddress, nil, err
	}
	frame, err := base64.StdEncoding.DecodeString(e.Frame)
	if err != nil {
		return 0, types.ZeroAddress, nil, err
	}
	return types.ChainID(e.FromChain), addr, frame, nil
}
