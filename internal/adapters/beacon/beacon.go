package beacon

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	v1 "github.com/attestantio/go-eth2-client/api/v1"
	"github.com/rs/zerolog"

	"github.com/attestantio/go-eth2-client/api"
	_http "github.com/attestantio/go-eth2-client/http"
	"github.com/attestantio/go-eth2-client/spec/phase0"

	"github.com/stakewatch/validator-watcher/internal/application/domain"
)

// Client is the beacon-node adapter. It implements the duty, block-presence,
// attestation-evaluation, slashing and index-resolution ports on top of the
// standard beacon API.
type Client struct {
	client *_http.Service
}

func NewBeaconAdapter(endpoint string) (*Client, error) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	customHTTPClient := &http.Client{
		Timeout: 20 * time.Second,
	}

	client, err := _http.New(context.Background(),
		_http.WithAddress(endpoint),
		_http.WithHTTPClient(customHTTPClient),
		_http.WithTimeout(20*time.Second), // important as attestant API overrides my timeout
	)
	if err != nil {
		return nil, err
	}

	return &Client{client: client.(*_http.Service)}, nil
}

// asUpstream tags an adapter failure with the transient error sentinel so
// the watcher abandons the tick and retries with the same state.
func asUpstream(err error) error {
	return fmt.Errorf("%v: %w", err, domain.ErrUpstreamUnavailable)
}

// GetProposerDuties fetches the proposer assignment for every slot of the
// epoch. The response carries no ordering guarantee, so the table is indexed
// by slot number here rather than by array position.
func (b *Client) GetProposerDuties(ctx context.Context, epoch domain.Epoch) (domain.ProposerDutyTable, error) {
	resp, err := b.client.ProposerDuties(ctx, &api.ProposerDutiesOpts{
		Epoch: phase0.Epoch(epoch),
	})
	if err != nil {
		return nil, asUpstream(err)
	}

	table := make(domain.ProposerDutyTable, len(resp.Data))
	for _, d := range resp.Data {
		table[domain.Slot(d.Slot)] = domain.ProposerDuty{
			Slot:           domain.Slot(d.Slot),
			ValidatorIndex: domain.ValidatorIndex(d.ValidatorIndex),
			Pubkey:         d.PubKey.String(),
		}
	}
	return table, nil
}

// HasBlockAtSlot checks whether a canonical block exists at the slot. A 404
// from the node means the slot was skipped, not an error.
func (b *Client) HasBlockAtSlot(ctx context.Context, slot domain.Slot) (bool, error) {
	block, err := b.client.SignedBeaconBlock(ctx, &api.SignedBeaconBlockOpts{
		Block: fmt.Sprintf("%d", slot),
	})
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			return false, nil
		}
		return false, asUpstream(err)
	}
	return block != nil && block.Data != nil, nil
}

// GetValidatorIndicesByPubkeys resolves watched pubkeys to their active
// validator indices. Pubkeys without an active validator are silently
// absent from the result.
func (b *Client) GetValidatorIndicesByPubkeys(ctx context.Context, pubkeys []string) (map[domain.ValidatorIndex]string, error) {
	// An empty filter would return the whole validator set.
	if len(pubkeys) == 0 {
		return map[domain.ValidatorIndex]string{}, nil
	}

	var beaconPubkeys []phase0.BLSPubKey

	for _, hexPubkey := range pubkeys {
		if len(hexPubkey) >= 2 && hexPubkey[:2] == "0x" {
			hexPubkey = hexPubkey[2:]
		}
		bytes, err := hex.DecodeString(hexPubkey)
		if err != nil {
			return nil, errors.New("failed to decode pubkey: " + hexPubkey)
		}
		if len(bytes) != 48 {
			return nil, errors.New("invalid pubkey length for: " + hexPubkey)
		}
		var blsPubkey phase0.BLSPubKey
		copy(blsPubkey[:], bytes)
		beaconPubkeys = append(beaconPubkeys, blsPubkey)
	}

	validators, err := b.client.Validators(ctx, &api.ValidatorsOpts{
		State:   "head",
		PubKeys: beaconPubkeys,
		ValidatorStates: []v1.ValidatorState{
			v1.ValidatorStateActiveOngoing,
			v1.ValidatorStateActiveExiting,
			v1.ValidatorStateActiveSlashed,
		},
	})
	if err != nil {
		return nil, asUpstream(err)
	}

	indices := make(map[domain.ValidatorIndex]string, len(validators.Data))
	for _, v := range validators.Data {
		indices[domain.ValidatorIndex(v.Index)] = v.Validator.PublicKey.String()
	}
	return indices, nil
}

// GetAttestationFailures returns the subset of indices the node did not see
// attesting in the epoch, via the liveness endpoint. Optimality beyond
// liveness (inclusion distance, vote correctness) is the node's concern.
func (b *Client) GetAttestationFailures(ctx context.Context, epoch domain.Epoch, indices []domain.ValidatorIndex) (domain.IndexSet, error) {
	var beaconIndices []phase0.ValidatorIndex
	for _, idx := range indices {
		beaconIndices = append(beaconIndices, phase0.ValidatorIndex(idx))
	}

	liveness, err := b.client.ValidatorLiveness(ctx, &api.ValidatorLivenessOpts{
		Epoch:   phase0.Epoch(epoch),
		Indices: beaconIndices,
	})
	if err != nil {
		return nil, asUpstream(err)
	}

	live := make(map[domain.ValidatorIndex]bool, len(liveness.Data))
	for _, v := range liveness.Data {
		live[domain.ValidatorIndex(v.Index)] = v.IsLive
	}

	failing := make(domain.IndexSet)
	for _, idx := range indices {
		if !live[idx] {
			failing.Add(idx)
		}
	}
	return failing, nil
}

// GetExitedSlashedIndices returns every validator currently in the
// exited-slashed state.
func (b *Client) GetExitedSlashedIndices(ctx context.Context) (domain.IndexSet, error) {
	slashed, err := b.client.Validators(ctx, &api.ValidatorsOpts{
		State: "head",
		ValidatorStates: []v1.ValidatorState{
			v1.ValidatorStateExitedSlashed,
		},
	})
	if err != nil {
		return nil, asUpstream(err)
	}

	indices := make(domain.IndexSet, len(slashed.Data))
	for _, v := range slashed.Data {
		indices.Add(domain.ValidatorIndex(v.Index))
	}
	return indices, nil
}
