package identity

import "strings"

// shardWidth is the number of identifier characters consumed per shard level.
const shardWidth = 2

// ShardKey returns the two-level relative directory "c0c1/c2c3" for id.
// Identifiers shorter than four characters are right-padded with '0' for the
// purpose of path construction only. The result always uses '/' separators.
func ShardKey(id string) string {
	clean := strings.ToLower(id)
	if n := 2 * shardWidth; len(clean) < n {
		clean += strings.Repeat("0", n-len(clean))
	}
	return clean[0:shardWidth] + "/" + clean[shardWidth:2*shardWidth]
}
