package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioA() Project {
	return NewProject(NewMatchPattern("Person", "KNOWS", "Person", 2), Col("src"), Col("dst"))
}

func TestFingerprintDeterminism(t *testing.T) {
	fp1, err := Fingerprint(scenarioA())
	require.NoError(t, err)
	fp2, err := Fingerprint(scenarioA())
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64)
}

func TestFingerprintChangesWithFields(t *testing.T) {
	base := MustFingerprint(scenarioA())

	variants := map[string]Node{
		"hops":       NewProject(NewMatchPattern("Person", "KNOWS", "Person", 3), Col("src"), Col("dst")),
		"label":      NewProject(NewMatchPattern("Person", "LIKES", "Person", 2), Col("src"), Col("dst")),
		"column":     NewProject(NewMatchPattern("Person", "KNOWS", "Person", 2), Col("src")),
		"alias":      NewProject(NewMatchPattern("Person", "KNOWS", "Person", 2), Col("src").As("a"), Col("dst")),
		"order":      NewProject(NewMatchPattern("Person", "KNOWS", "Person", 2), Col("dst"), Col("src")),
		"wrapped":    NewExtractDataset(scenarioA(), "pairs", nil),
		"string lit": NewFilter(scenarioA(), Cmp(Ref("src.flag"), OpEq, Str("true"))),
		"bool lit":   NewFilter(scenarioA(), Cmp(Ref("src.flag"), OpEq, Bool(true))),
	}

	seen := map[string]string{"base": base}
	for name, node := range variants {
		fp := MustFingerprint(node)
		for other, ofp := range seen {
			assert.NotEqual(t, ofp, fp, "%s collides with %s", name, other)
		}
		seen[name] = fp
	}
}

func TestHashWithDomainNullSeparator(t *testing.T) {
	h := sha256.New()
	h.Write([]byte("d"))
	h.Write([]byte{0})
	h.Write([]byte("x"))

	assert.Equal(t, hex.EncodeToString(h.Sum(nil)), hashWithDomain("d", []byte("x")))
	assert.NotEqual(t, hashWithDomain("ab", []byte("c")), hashWithDomain("a", []byte("bc")))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(scenarioA(), scenarioA()))
	assert.False(t, Equal(scenarioA(), NewMatchPattern("Person", "KNOWS", "Person", 2)))
	assert.False(t, Equal(nil, nil))

	hintA := NewExtractDataset(scenarioA(), "d", map[string]string{"a": "int", "b": "string"})
	hintB := NewExtractDataset(scenarioA(), "d", map[string]string{"b": "string", "a": "int"})
	assert.True(t, Equal(hintA, hintB))
}

func TestMustFingerprintPanics(t *testing.T) {
	assert.Panics(t, func() { MustFingerprint(nil) })
}
