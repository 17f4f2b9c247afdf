package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/tidwall/gjson"
)

// DefaultTimestampField is the path, in gjson syntax, of the progress
// timestamp the SPT server writes into every profile.
const DefaultTimestampField = "characters.pmc.Hideout.sptUpdateLastRunTimestamp"

// TimestampFunc extracts the progress timestamp from a profile's contents.
// Implementations must return 0 rather than fail when the contents can't be
// interpreted, since 0 is treated as the oldest possible progress.
type TimestampFunc func(contents []byte) int64

// FieldTimestamp returns a TimestampFunc that reads the integer at `field`
// in JSON contents. Fractional and out of range numbers read as 0.
func FieldTimestamp(field string) TimestampFunc {
	return func(contents []byte) int64 {
		if len(contents) == 0 || !gjson.ValidBytes(contents) {
			return 0
		}

		result := gjson.GetBytes(contents, field)
		if result.Type != gjson.Number {
			return 0
		}
		ts, err := strconv.ParseInt(result.Raw, 10, 64)
		if err != nil {
			return 0
		}
		return ts
	}
}

// Hash returns the hex-encoded SHA-256 digest of `contents`.
func Hash(contents []byte) string {
	sum := sha256.Sum256(contents)
	return hex.EncodeToString(sum[:])
}
