package ports

// PubkeySource supplies validator pubkeys to watch. Implementations read a
// local file or call a remote signer; the watcher queries every configured
// source on each tick and uses the union, never caching the result.
type PubkeySource interface {
	GetValidatorPubkeys() ([]string, error)
}
