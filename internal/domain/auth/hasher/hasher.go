package hasher

import "context"

// CredentialHasher turns passwords into self-describing credentials and
// checks passwords against them.
type CredentialHasher interface {
	// Hash derives a new credential with a fresh random salt.
	Hash(ctx context.Context, password string) (string, error)

	// Verify returns (true, nil) on match and (false, nil) on mismatch.
	// An error means the stored credential itself is unusable.
	Verify(ctx context.Context, password, encoded string) (bool, error)

	// NeedsRehash reports whether encoded was derived with cost parameters
	// other than the current ones.
	NeedsRehash(encoded string) bool
}
