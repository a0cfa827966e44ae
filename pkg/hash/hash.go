// Package hash provides the seeded feature hashers used to turn feature and
// namespace names into fixed-width indices.
//
// Three functions are available:
//
//   - "strings": names made only of ASCII digits hash to their integer value plus
//     the seed; everything else goes through murmur3 (x86, 32-bit). Leading and
//     trailing ASCII whitespace and control bytes are ignored.
//   - "all": murmur3 for every name, digits included.
//   - "xxhash": seeded xxHash64; not compatible with models trained on murmur3 indices.
//
// All functions are pure and safe for concurrent use.
package hash

import (
	"github.com/cespare/xxhash/v2"
	"github.com/twmb/murmur3"

	"github.com/ajitpratap0/featline/pkg/errors"
)

const (
	// QuadraticConstant decorrelates derived slots and seeds dictionary lookups.
	QuadraticConstant uint64 = 27942141
	// AffixConstant is the base multiplier for affix feature hashes.
	AffixConstant uint64 = 13903957
)

// Func hashes name under seed.
type Func func(name []byte, seed uint64) uint64

// Uniform is murmur3 x86_32 with the seed truncated to 32 bits.
func Uniform(data []byte, seed uint64) uint64 {
	return uint64(murmur3.SeedSum32(uint32(seed), data))
}

// Strings hashes all-digit names numerically and everything else with Uniform.
func Strings(name []byte, seed uint64) uint64 {
	begin, end := 0, len(name)
	for begin < end && isBlank(name[begin]) {
		begin++
	}
	for end > begin && isBlank(name[end-1]) {
		end--
	}
	trimmed := name[begin:end]

	var ret uint64
	for _, c := range trimmed {
		if c < '0' || c > '9' {
			return Uniform(trimmed, seed)
		}
		ret = 10*ret + uint64(c-'0')
	}
	return ret + seed
}

// All hashes every name with Uniform.
func All(name []byte, seed uint64) uint64 {
	return Uniform(name, seed)
}

// XXHash is seeded xxHash64.
func XXHash(name []byte, seed uint64) uint64 {
	var d xxhash.Digest
	d.ResetWithSeed(seed)
	_, _ = d.Write(name)
	return d.Sum64()
}

// Lookup returns the hash function registered under name.
func Lookup(name string) (Func, error) {
	switch name {
	case "", "strings":
		return Strings, nil
	case "all":
		return All, nil
	case "xxhash":
		return XXHash, nil
	default:
		return nil, errors.New(errors.ErrorTypeConfig, "unknown hash function").
			WithDetail("hash", name)
	}
}

// isBlank matches ASCII whitespace and control bytes but never UTF-8 continuation bytes.
func isBlank(c byte) bool {
	return c <= 0x20
}
