package web3signer

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stakewatch/validator-watcher/internal/application/ports"
)

// Web3SignerAdapter implements ports.PubkeySource against a remote signer.
// It is queried on every tick so keys added to or removed from the signer
// are picked up without a restart.
type Web3SignerAdapter struct {
	Endpoint   string
	HTTPClient *http.Client
}

// KeystoreResponse models the expected JSON from /eth/v1/keystores
type KeystoreResponse struct {
	Data []struct {
		ValidatingPubkey string `json:"validating_pubkey"`
	} `json:"data"`
}

func NewWeb3SignerAdapter(endpoint string) ports.PubkeySource {
	return &Web3SignerAdapter{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *Web3SignerAdapter) GetValidatorPubkeys() ([]string, error) {
	url := fmt.Sprintf("%s/eth/v1/keystores", w.Endpoint)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating Web3Signer request: %w", err)
	}

	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending Web3Signer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected Web3Signer status %d: %s", resp.StatusCode, string(body))
	}

	var keystoreResp KeystoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&keystoreResp); err != nil {
		return nil, fmt.Errorf("error decoding Web3Signer response: %w", err)
	}

	pubkeys := make([]string, 0, len(keystoreResp.Data))
	for _, item := range keystoreResp.Data {
		pubkeys = append(pubkeys, item.ValidatingPubkey)
	}
	return pubkeys, nil
}
