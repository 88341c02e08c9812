// Package identity derives public pseudonyms from private registration
// numbers. Generation is a pure function of the input: the same number
// always produces the same handle, so a returning member is recognizable
// to themselves without the system ever storing the raw number.
package identity

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

var adjectives = []string{
	"Mysterious", "Silent", "Hidden", "Secret", "Quiet", "Stealthy", "Shadow", "Whisper",
	"Echo", "Fade", "Veil", "Mask", "Ghost", "Phantom", "Specter", "Wraith",
	"Silhouette", "Mist", "Fog", "Cloud", "Vapor", "Smoke", "Haze", "Dusk",
	"Twilight", "Midnight", "Starlight", "Moonlight", "Sunset", "Dawn", "Aurora",
}

var nouns = []string{
	"Observer", "Watcher", "Listener", "Seeker", "Wanderer", "Traveler", "Explorer",
	"Guardian", "Sentinel", "Protector", "Defender", "Keeper", "Caretaker", "Custodian",
	"Messenger", "Herald", "Emissary", "Ambassador", "Delegate", "Representative",
	"Sage", "Scholar", "Wise", "Thinker", "Philosopher", "Mystic", "Oracle",
}

// SuffixLen is the number of hex characters appended to disambiguate
// handles that land on the same adjective/noun pair.
const SuffixLen = 4

// Generate returns the anonymous handle for a registration number.
//
// Disjoint slices of the SHA-256 digest select the adjective, the noun and
// a short hex suffix. The suffix keeps cross-number collisions rare but not
// impossible; callers must re-check global uniqueness and reject the
// registration on a collision rather than reassign.
func Generate(regNo string) string {
	digest := sha256.Sum256([]byte(regNo))

	adjIdx := binary.BigEndian.Uint32(digest[0:4]) % uint32(len(adjectives))
	nounIdx := binary.BigEndian.Uint32(digest[4:8]) % uint32(len(nouns))
	suffix := fmt.Sprintf("%x", digest[len(digest)-SuffixLen/2:])

	return adjectives[adjIdx] + nouns[nounIdx] + suffix
}
