package mount

import (
	"math/rand"
	"testing"

	"golang.org/x/sys/unix"
	"gotest.tools/v3/assert"
)

// ParseOptions/Serialize must agree on an effective tuple regardless of
// the order options were supplied in: parsing is a fold over a
// commutative merge of set/clear bitmasks, and Serialize always walks
// the same canonicalOrder/canonicalPropagationOrder slices.
func TestParseSerializeRoundTripOrderIndependent(t *testing.T) {
	cases := [][]string{
		{"bind", "ro", "nosuid", "noexec"},
		{"rbind", "nodev", "relatime"},
		{"noatime", "nodiratime", "dirsync", "mand"},
		{"rshared"},
		{"rslave", "noexec", "copy-symlink"},
		{"private", "bind", "ro"},
		{},
	}

	for _, opts := range cases {
		wantFlags, wantProp, wantExt, _ := ParseOptions(opts)
		wantSerialized := Serialize(wantFlags, wantProp, wantExt)

		for i := 0; i < 5; i++ {
			shuffled := shuffledCopy(opts)
			flags, prop, ext, _ := ParseOptions(shuffled)
			assert.Equal(t, flags, wantFlags, "flags differ for permutation %v of %v", shuffled, opts)
			assert.Equal(t, prop, wantProp, "propagation differs for permutation %v of %v", shuffled, opts)
			assert.Equal(t, ext, wantExt, "ext differs for permutation %v of %v", shuffled, opts)

			got := Serialize(flags, prop, ext)
			assert.DeepEqual(t, got, wantSerialized)
		}
	}
}

// A later option overrides an earlier contradictory one ("ro" then
// "rw" clears MS_RDONLY again), but the final bit pattern must still
// serialize to a single canonical spelling.
func TestParseOptionsLastWriteWins(t *testing.T) {
	flags, _, _, _ := ParseOptions([]string{"ro", "rw"})
	assert.Equal(t, flags&uintptr(unix.MS_RDONLY), uintptr(0))

	flags, _, _, _ = ParseOptions([]string{"rw", "ro"})
	assert.Equal(t, flags&uintptr(unix.MS_RDONLY), uintptr(unix.MS_RDONLY))
}

// Unrecognized options are preserved verbatim as comma-joined data,
// since they are opaque filesystem-specific arguments (e.g. tmpfs's
// "size=64m") rather than part of the known vocabulary.
func TestParseOptionsPassesThroughData(t *testing.T) {
	_, _, _, data := ParseOptions([]string{"bind", "size=64m", "mode=0755"})
	assert.Equal(t, data, "size=64m,mode=0755")
}

func TestSerializeCanonicalOrderIgnoresInputOrder(t *testing.T) {
	flagsA, propA, extA, _ := ParseOptions([]string{"noexec", "ro", "bind"})
	flagsB, propB, extB, _ := ParseOptions([]string{"bind", "ro", "noexec"})
	assert.DeepEqual(t, Serialize(flagsA, propA, extA), Serialize(flagsB, propB, extB))
}

func shuffledCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
