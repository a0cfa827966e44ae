package label

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/featline/pkg/errors"
)

func words(ws ...string) [][]byte {
	out := make([][]byte, len(ws))
	for i, w := range ws {
		out[i] = []byte(w)
	}
	return out
}

func TestSimpleDefaults(t *testing.T) {
	lbl := Simple{}.NewLabel().(*SimpleLabel)
	assert.Equal(t, float32(math.MaxFloat32), lbl.Label)
	assert.Equal(t, float32(1), lbl.Weight)
	assert.Zero(t, lbl.Initial)
	assert.False(t, lbl.IsLabeled())
}

func TestSimpleParse(t *testing.T) {
	tests := []struct {
		name  string
		words [][]byte
		want  SimpleLabel
	}{
		{"empty", nil, SimpleLabel{Label: math.MaxFloat32, Weight: 1}},
		{"label", words("1"), SimpleLabel{Label: 1, Weight: 1}},
		{"weight", words("-1", "0.5"), SimpleLabel{Label: -1, Weight: 0.5}},
		{"initial", words("2", "3", "0.25"), SimpleLabel{Label: 2, Weight: 3, Initial: 0.25}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lbl := Simple{}.NewLabel().(*SimpleLabel)
			require.NoError(t, Simple{}.Parse(tt.words, lbl))
			assert.Equal(t, tt.want, *lbl)
		})
	}
}

func TestSimpleParseErrors(t *testing.T) {
	lbl := Simple{}.NewLabel()

	err := Simple{}.Parse(words("1", "2", "3", "4"), lbl)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeLabel))

	err = Simple{}.Parse(words("one"), lbl)
	require.Error(t, err)
	assert.True(t, errors.IsMalformed(err))

	err = Simple{}.Parse(words("1"), &NoLabel{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))
}

func TestNoneIgnoresTokens(t *testing.T) {
	lbl := None{}.NewLabel()
	assert.NoError(t, None{}.Parse(words("anything", "goes", "here", "at", "all"), lbl))
}

func TestLookup(t *testing.T) {
	p, err := Lookup("simple")
	require.NoError(t, err)
	assert.IsType(t, Simple{}, p)

	p, err = Lookup("none")
	require.NoError(t, err)
	assert.IsType(t, None{}, p)

	_, err = Lookup("multiclass")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
