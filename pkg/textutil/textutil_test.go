package textutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/recut/pkg/textutil"
)

func TestIsBinary_NullByte(t *testing.T) {
	t.Parallel()

	assert.False(t, textutil.IsBinary(nil))
	assert.False(t, textutil.IsBinary([]byte("1\n00:00:00,000 --> 00:00:01,000\nhi\n")))
	assert.True(t, textutil.IsBinary([]byte{'a', 0x00, 'b'}))
}

func TestNormalize_CollapsesWhitespace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b c", textutil.Normalize("  A \t b\n C  "))
	assert.Equal(t, "", textutil.Normalize("   "))
}

func TestScriptTally_MixedText(t *testing.T) {
	t.Parallel()

	cjk, ascii := textutil.ScriptTally("今天weather很好ok")

	assert.Equal(t, 4, cjk, "ideograph count")
	assert.Equal(t, 9, ascii, "ascii letter count")
}

func TestSplitSentences_ChineseAndEnglish(t *testing.T) {
	t.Parallel()

	got := textutil.SplitSentences("今天天气很好。我去了公园！Then I went home.")

	require.Len(t, got, 3)
	assert.Equal(t, "今天天气很好。", got[0])
	assert.Equal(t, "我去了公园！", got[1])
	assert.Equal(t, "Then I went home.", got[2])
}

func TestSplitSentences_NoTerminator(t *testing.T) {
	t.Parallel()

	got := textutil.SplitSentences("no punctuation here")

	require.Len(t, got, 1)
	assert.Equal(t, "no punctuation here", got[0])
}

func TestSplitClauses_CommaBoundaries(t *testing.T) {
	t.Parallel()

	got := textutil.SplitClauses("他回来了，但是没有人注意到，直到深夜。")

	require.Len(t, got, 3)
	assert.Equal(t, "他回来了，", got[0])
}

func TestWords_CJKRunesAreWords(t *testing.T) {
	t.Parallel()

	got := textutil.Words("心情 very good")

	assert.Contains(t, got, "心")
	assert.Contains(t, got, "情")
	assert.Contains(t, got, "very")
	assert.Contains(t, got, "good")
}

func TestNGrams_ShortString(t *testing.T) {
	t.Parallel()

	grams := textutil.NGrams("ab", 3)

	assert.Len(t, grams, 1)
	assert.Contains(t, grams, "ab")
}

func TestNGrams_Trigram(t *testing.T) {
	t.Parallel()

	grams := textutil.NGrams("abcd", 3)

	assert.Len(t, grams, 2)
	assert.Contains(t, grams, "abc")
	assert.Contains(t, grams, "bcd")
}
