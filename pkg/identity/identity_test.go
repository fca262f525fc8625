package identity

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveEmptyTupleEncodesSeparators(t *testing.T) {
	// Empty fields still contribute their separators to the canonical string.
	assert.Equal(t, EncodeBase36([]byte("|||")), Derive(Tuple{}))
	assert.Equal(t, "4uv0c", Derive(Tuple{}))
	assert.Equal(t, "0", EncodeBase36(nil))
	assert.Equal(t, "0", EncodeBase36([]byte{0, 0}))
}

func TestDeriveMatchesBigEndianBase36(t *testing.T) {
	canonical := "Doe|Jane||1990-01-01"
	want := new(big.Int).SetBytes([]byte(canonical)).Text(36)

	got := Derive(Tuple{Family: "Doe", Given: "Jane", DateOfBirth: "1990-01-01"})
	assert.Equal(t, want, got)
	assert.True(t, IsValidID(got))
}

func TestDeriveKnownValues(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{name: "single byte", in: []byte{35}, want: "z"},
		{name: "carry", in: []byte{36}, want: "10"},
		{name: "two bytes", in: []byte{0x01, 0x00}, want: "74"},
		{name: "ascii a", in: []byte("a"), want: "2p"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeBase36(tt.in))
		})
	}
}

func TestDeriveIsDeterministicAndTrims(t *testing.T) {
	a := Tuple{Family: "  Doe ", Given: "Jane\t", Suffix: " Jr ", DateOfBirth: "1990-01-01\n"}
	b := Tuple{Family: "Doe", Given: "Jane", Suffix: "Jr", DateOfBirth: "1990-01-01"}

	first := Derive(a)
	assert.Equal(t, first, Derive(a))
	assert.Equal(t, first, Derive(b))
	assert.Equal(t, "Doe|Jane|Jr|1990-01-01", Canonical(a))
}

func TestDeriveUnicode(t *testing.T) {
	id := Derive(Tuple{Family: "Müller", Given: "Zoë", DateOfBirth: "1901-02-03"})

	n, ok := new(big.Int).SetString(id, 36)
	require.True(t, ok)
	assert.Equal(t, "Müller|Zoë||1901-02-03", string(n.Bytes()))
}

func TestDeriveSeparatorCollision(t *testing.T) {
	// The separator is not escaped, so these two tuples share a canonical string.
	a := Derive(Tuple{Family: "a|b", Given: "c", DateOfBirth: "d"})
	b := Derive(Tuple{Family: "a", Given: "b|c", DateOfBirth: "d"})
	assert.Equal(t, a, b)
}

func TestIsValidIDRejects(t *testing.T) {
	for _, id := range []string{"", "ABC", "a-b", "zz!"} {
		assert.False(t, IsValidID(id), "expected %q to be rejected", id)
	}
}

func TestIDFromDirName(t *testing.T) {
	id := Derive(Tuple{Family: "Doe", Given: "Jane", DateOfBirth: "1990-01-01"})

	got, ok := IDFromDirName(DirName("Doe,_Jane", id))
	require.True(t, ok)
	assert.Equal(t, id, got)

	got, ok = IDFromDirName("Smith--Jones--abc123")
	require.True(t, ok)
	assert.Equal(t, "abc123", got)

	_, ok = IDFromDirName("no-separator")
	assert.False(t, ok)

	_, ok = IDFromDirName("Name--")
	assert.False(t, ok)
}

func TestShardKey(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{id: "13x9q2z", want: "13/x9"},
		{id: "ABCDEF", want: "ab/cd"},
		{id: "0", want: "00/00"},
		{id: "abc", want: "ab/c0"},
		{id: "", want: "00/00"},
		{id: "abcd", want: "ab/cd"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := ShardKey(tt.id)
			assert.Equal(t, tt.want, got)

			parts := strings.Split(got, "/")
			require.Len(t, parts, 2)
			assert.Len(t, parts[0], 2)
			assert.Len(t, parts[1], 2)
		})
	}
}

func TestShardKeyDoesNotMutateID(t *testing.T) {
	id := "ab"
	_ = ShardKey(id)
	assert.Equal(t, "ab", id)
}
