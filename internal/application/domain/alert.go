package domain

// Severity of an emitted alert. Sinks may filter on it: the chat sink only
// forwards critical alerts, the console sink prints everything.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Metric names incremented by the monitors.
const (
	MetricMissedBlockProposals      = "validator_watcher_missed_block_proposals"
	MetricMissedAttestations        = "validator_watcher_missed_attestations"
	MetricDoubleMissedAttestations  = "validator_watcher_double_missed_attestations"
	MetricSlashedWatchedValidators  = "validator_watcher_our_slashed_validators"
	MetricSlashedExternalValidators = "validator_watcher_total_slashed_validators"
	GaugeKeysCount                  = "validator_watcher_keys_count"
)
