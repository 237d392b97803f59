package composer

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeAppendsNormalizedTags(t *testing.T) {
	got := Compose("Visit us!", []string{"Nairobi", "#Kenya", ""}, 30)
	assert.Equal(t, "Visit us! #Nairobi #Kenya", got)
	assert.LessOrEqual(t, Length(got), 30)
}

func TestComposeNoTagsTrimsTrailingWhitespace(t *testing.T) {
	assert.Equal(t, "Grow with us", Compose("Grow with us  \n", nil, 50))
}

func TestComposeTruncatesLongBase(t *testing.T) {
	base := strings.Repeat("abcde", 10)
	got := Compose(base, nil, 20)
	assert.Equal(t, base[:20], got)
	assert.Equal(t, 20, Length(got))
}

func TestComposeDropsMarkerlessTagsFirst(t *testing.T) {
	// base(10) + " #one"(5) + " #Two"(5) + " #three"(7) = 27
	got := Compose("0123456789", []string{"one", "#Two", "three"}, 21)
	assert.Equal(t, "0123456789 #Two", got, "both marker-less tags go before any marked one")

	got = Compose("0123456789", []string{"one", "#Two", "three"}, 22)
	assert.Equal(t, "0123456789 #Two #three", got, "phase 1 stops as soon as the text fits")
}

func TestComposeDropsFromEndWhenAllTagsMarked(t *testing.T) {
	got := Compose("0123456789", []string{"#aa", "#bb", "#cc"}, 18)
	assert.Equal(t, "0123456789 #aa #bb", got)
}

func TestComposeFallsBackToTruncationWithoutTags(t *testing.T) {
	got := Compose("a long promotional sentence", []string{"#x", "y"}, 6)
	assert.Equal(t, "a long", got)
}

func TestComposeTruncatesOnRuneBoundary(t *testing.T) {
	got := Compose("🌿🌿🌿🌿", nil, 3)
	assert.Equal(t, "🌿🌿🌿", got)
}

func TestComposeEmptyBase(t *testing.T) {
	assert.Equal(t, "#a #b", Compose("", []string{"a", "b"}, 5))
}

func TestComposeNonPositiveBudget(t *testing.T) {
	assert.Equal(t, "", Compose("text", []string{"#a"}, 0))
}

func TestNormalizeIsIdempotentForMarkedTags(t *testing.T) {
	in := []string{"#Kenya", "#Nairobi"}
	assert.Equal(t, in, Normalize(in))
	assert.Equal(t, in, Normalize(Normalize([]string{" Kenya ", "#Nairobi", "  ", "#"})))
}

func TestComposeNeverExceedsBudget(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	words := []string{"garden", "#Kenya", "", " trees ", "#🌿", "pools", "#Nairobi", "lighting", "#"}

	for i := 0; i < 2000; i++ {
		base := strings.Repeat("x", rnd.Intn(120))
		tags := make([]string, rnd.Intn(6))
		for j := range tags {
			tags[j] = words[rnd.Intn(len(words))]
		}
		maxLength := 1 + rnd.Intn(150)

		got := Compose(base, tags, maxLength)
		require.LessOrEqual(t, Length(got), maxLength, "base=%q tags=%q max=%d", base, tags, maxLength)
		require.Equal(t, got, Compose(base, tags, maxLength), "compose must be deterministic")
	}
}
