package parser

import (
	"fmt"
	"io"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"github.com/ajitpratap0/featline/pkg/errors"
	"github.com/ajitpratap0/featline/pkg/example"
	"github.com/ajitpratap0/featline/pkg/hash"
	"github.com/ajitpratap0/featline/pkg/label"
	"github.com/ajitpratap0/featline/pkg/testutil"
)

type collectingSink struct {
	mu    sync.Mutex
	diags []*Diagnostic
}

func (s *collectingSink) Warn(d *Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diags = append(s.diags, d)
}

func newTestParser(t *testing.T, configure func(*Context), opts ...Option) (*Parser, *collectingSink) {
	t.Helper()
	ctx := NewContext()
	if configure != nil {
		configure(ctx)
	}
	sink := &collectingSink{}
	opts = append([]Option{WithWarningSink(sink)}, opts...)
	return New(ctx, opts...), sink
}

func parse(t *testing.T, p *Parser, line string) *example.Example {
	t.Helper()
	ex := p.NewExample()
	require.NoError(t, p.ParseLine([]byte(line), ex, 0))
	return ex
}

func strHash(name string, seed uint64) uint64 {
	return hash.Strings([]byte(name), seed)
}

func simpleLabel(t *testing.T, ex *example.Example) *label.SimpleLabel {
	t.Helper()
	sl, ok := ex.Label.(*label.SimpleLabel)
	require.True(t, ok)
	return sl
}

func TestParseLineBasic(t *testing.T) {
	p, sink := newTestParser(t, nil)
	ex := parse(t, p, "1 |a x:2 y")

	assert.Equal(t, float32(1), simpleLabel(t, ex).Label)
	assert.Empty(t, ex.Tag)
	assert.Equal(t, []byte{'a'}, ex.Indices)

	ch := strHash("a", 0)
	fs := ex.FeatureSpace['a']
	assert.Equal(t, []float32{2, 1}, fs.Values)
	assert.Equal(t, []uint64{strHash("x", ch), strHash("y", ch)}, fs.Indices)
	assert.Equal(t, float32(5), fs.SumFeatSq)
	assert.Empty(t, fs.SpaceNames)
	assert.Empty(t, sink.diags)
}

func TestParseLineTrailingNewlines(t *testing.T) {
	p, _ := newTestParser(t, nil)
	ex := parse(t, p, "1 |a x\n\n")
	assert.Equal(t, []float32{1}, ex.FeatureSpace['a'].Values)
}

func TestParseLineFramesRawLines(t *testing.T) {
	p, sink := newTestParser(t, nil)
	ex := parse(t, p, "\xEF\xBB\xBF1 |a x\r\n")
	assert.Equal(t, float32(1), simpleLabel(t, ex).Label)
	assert.Equal(t, []uint64{strHash("x", strHash("a", 0))}, ex.FeatureSpace['a'].Indices)
	assert.Empty(t, sink.diags)

	ex = p.NewExample()
	require.NoError(t, p.ParseLine([]byte("\xEF\xBB\xBF1 |a x:zz"), ex, 3))
	require.NotEmpty(t, sink.diags)
	for _, d := range sink.diags {
		assert.NotContains(t, d.Message, "\xEF\xBB\xBF")
		assert.Contains(t, d.Message, `in Example #3: "1 |a x:zz"`)
	}

	strict, _ := newTestParser(t, func(c *Context) { c.Strict = true })
	ex = strict.NewExample()
	require.NoError(t, strict.ParseLine([]byte("\xEF\xBB\xBF1 |a x"), ex, 0))
	assert.Equal(t, float32(1), simpleLabel(t, ex).Label)
}

func TestLabelAndTag(t *testing.T) {
	tests := []struct {
		line    string
		label   float32
		weight  float32
		initial float32
		tag     string
	}{
		{"1 'example3 |a x", 1, 1, 0, "example3"},
		{"1 0.5 |a x", 1, 0.5, 0, ""},
		{"-1 2 0.25 |a x", -1, 2, 0.25, ""},
		{"1 example3|a x", 1, 1, 0, "example3"},
		{"'only |a x", math.MaxFloat32, 1, 0, "only"},
		{"id\t1 'tag |a x", 1, 1, 0, "tag"},
		{"|a x", math.MaxFloat32, 1, 0, ""},
		{"1 2 ", 1, 2, 0, ""},
		{"1 2", 1, 1, 0, "2"},
	}

	p, _ := newTestParser(t, nil)
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			ex := parse(t, p, tt.line)
			sl := simpleLabel(t, ex)
			assert.Equal(t, tt.label, sl.Label)
			assert.Equal(t, tt.weight, sl.Weight)
			assert.Equal(t, tt.initial, sl.Initial)
			assert.Equal(t, tt.tag, string(ex.Tag))
		})
	}
}

func TestLineWithoutBarHasNoFeatures(t *testing.T) {
	p, _ := newTestParser(t, nil)
	ex := parse(t, p, "1 2 ")
	assert.Empty(t, ex.Indices)
	assert.Equal(t, 0, ex.NumFeatures())
}

func TestEmptyLine(t *testing.T) {
	p, sink := newTestParser(t, nil)
	ex := parse(t, p, "")
	assert.Empty(t, ex.Indices)
	assert.Empty(t, ex.Tag)
	assert.False(t, simpleLabel(t, ex).IsLabeled())
	assert.Empty(t, sink.diags)
}

func TestZeroValuedFeaturesAreDropped(t *testing.T) {
	p, _ := newTestParser(t, nil)
	ex := parse(t, p, "|a x:0 y:0.0 z:-0 w")
	ch := strHash("a", 0)
	assert.Equal(t, []float32{1}, ex.FeatureSpace['a'].Values)
	assert.Equal(t, []uint64{strHash("w", ch)}, ex.FeatureSpace['a'].Indices)

	ex = parse(t, p, "|b x:0")
	assert.Empty(t, ex.Indices, "a namespace with only zero features is not active")
}

func TestDuplicateFeaturesAreKept(t *testing.T) {
	p, _ := newTestParser(t, nil)
	ex := parse(t, p, "|a x x:3")
	fs := ex.FeatureSpace['a']
	assert.Equal(t, []float32{1, 3}, fs.Values)
	assert.Equal(t, fs.Indices[0], fs.Indices[1])
}

func TestNamespaceListedOnce(t *testing.T) {
	p, _ := newTestParser(t, nil)
	ex := parse(t, p, "|a x |b y |a z")
	assert.Equal(t, []byte{'a', 'b'}, ex.Indices)
	assert.Equal(t, 2, ex.FeatureSpace['a'].Len())
}

func TestNamespaceUsesFirstByteAndFullNameHash(t *testing.T) {
	p, _ := newTestParser(t, nil)
	ex := parse(t, p, "|alpha x |beta y")
	assert.Equal(t, []byte{'a', 'b'}, ex.Indices)
	assert.Equal(t, []uint64{strHash("x", strHash("alpha", 0))}, ex.FeatureSpace['a'].Indices)
	assert.Equal(t, []uint64{strHash("y", strHash("beta", 0))}, ex.FeatureSpace['b'].Indices)
}

func TestDefaultNamespace(t *testing.T) {
	p, _ := newTestParser(t, nil)
	ex := parse(t, p, "| x\ty")
	assert.Equal(t, []byte{example.DefaultNamespace}, ex.Indices)
	assert.Equal(t, []uint64{strHash("x", 0), strHash("y", 0)}, ex.FeatureSpace[' '].Indices)

	seeded, _ := newTestParser(t, func(c *Context) { c.HashSeed = 5 })
	ex = parse(t, seeded, "| x")
	ch := hash.Uniform(nil, 5)
	assert.Equal(t, []uint64{strHash("x", ch)}, ex.FeatureSpace[' '].Indices)
}

func TestNamespaceChannelValue(t *testing.T) {
	p, sink := newTestParser(t, nil)
	ex := parse(t, p, "|a:2 x:3 y")
	assert.Equal(t, []float32{6, 2}, ex.FeatureSpace['a'].Values)
	assert.Equal(t, float32(40), ex.FeatureSpace['a'].SumFeatSq)

	ex = parse(t, p, "|a:0 x")
	assert.Empty(t, ex.Indices)

	ex = parse(t, p, "|a:nan x")
	assert.Equal(t, []float32{1}, ex.FeatureSpace['a'].Values)
	require.Len(t, sink.diags, 1)
	assert.Equal(t, errors.ErrorTypeNumeric, sink.diags[0].Kind)
	assert.Contains(t, sink.diags[0].Message, "invalid namespace value")

	// an unparsable channel value falls back to a multiplier of 1
	ex = parse(t, p, "|a: x:3")
	assert.Equal(t, []float32{3}, ex.FeatureSpace['a'].Values)
	require.Len(t, sink.diags, 2)
	assert.Equal(t, errors.ErrorTypeNumeric, sink.diags[1].Kind)
	assert.Contains(t, sink.diags[1].Message, `Float expected after : "|a:"`)
}

func TestNaNFeatureValueIsReplaced(t *testing.T) {
	p, sink := newTestParser(t, nil)
	ex := parse(t, p, "|a x:NaN y")
	assert.Equal(t, []float32{1}, ex.FeatureSpace['a'].Values)
	require.Len(t, sink.diags, 1)
	assert.Equal(t, errors.ErrorTypeNumeric, sink.diags[0].Kind)
	assert.Contains(t, sink.diags[0].Message, "read as NaN. Replacing with 0.")
}

func TestFeatureValueForms(t *testing.T) {
	p, sink := newTestParser(t, nil)
	ex := parse(t, p, "|a b:-1.5 c:1e2 d:.25 e:+3 f:inf")
	assert.Equal(t, []float32{-1.5, 100, 0.25, 3, float32(math.Inf(1))}, ex.FeatureSpace['a'].Values)
	assert.Empty(t, sink.diags)
}

func TestMissingNameBeforeColon(t *testing.T) {
	strict, _ := newTestParser(t, func(c *Context) { c.Strict = true })
	ex := strict.NewExample()
	err := strict.ParseLine([]byte("|b :3 z"), ex, 4)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSyntax))
	assert.Contains(t, err.Error(), "String expected before :")

	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, uint64(4), e.Details["ordinal"])
	assert.Empty(t, ex.Indices)

	permissive, sink := newTestParser(t, nil)
	ex = parse(t, permissive, "|b :3 z")
	require.Len(t, sink.diags, 1)
	assert.Equal(t, errors.ErrorTypeSyntax, sink.diags[0].Kind)

	ch := strHash("b", 0)
	assert.Equal(t, []float32{3, 1}, ex.FeatureSpace['b'].Values)
	assert.Equal(t, []uint64{ch, strHash("z", ch)}, ex.FeatureSpace['b'].Indices)
}

func TestAnonymousFeaturesCountUpAndSkipMask(t *testing.T) {
	p, _ := newTestParser(t, func(c *Context) { c.ParseMask = 0xF })
	ex := parse(t, p, "|a :0 :1 :2 x")

	ch := strHash("a", 0)
	fs := ex.FeatureSpace['a']
	// the zero valued feature still consumes slot ch+0
	assert.Equal(t, []uint64{ch + 1, ch + 2, strHash("x", ch) & 0xF}, fs.Indices)
}

func TestParseMask(t *testing.T) {
	p, _ := newTestParser(t, func(c *Context) { c.ParseMask = 0x3FF })
	ex := parse(t, p, "|a x y z |b w")
	for _, ns := range ex.Indices {
		for _, idx := range ex.FeatureSpace[ns].Indices {
			assert.LessOrEqual(t, idx, uint64(0x3FF))
		}
	}
}

func TestNumericFeatureNames(t *testing.T) {
	p, _ := newTestParser(t, func(c *Context) { c.HashSeed = 0 })
	ex := parse(t, p, "| 123")
	assert.Equal(t, []uint64{123}, ex.FeatureSpace[' '].Indices)

	all, _ := newTestParser(t, func(c *Context) { c.Hasher = hash.All })
	ex = parse(t, all, "| 123")
	assert.Equal(t, []uint64{hash.Uniform([]byte("123"), 0)}, ex.FeatureSpace[' '].Indices)
}

func TestRedefineAppliesToNamespaceIndex(t *testing.T) {
	p, _ := newTestParser(t, func(c *Context) {
		require.NoError(t, ParseRedefine(c, []string{"z:=ab"}))
	})
	ex := parse(t, p, "|a x |b y |c w")
	assert.Equal(t, []byte{'z', 'c'}, ex.Indices)
	assert.Equal(t, []uint64{strHash("x", strHash("a", 0)), strHash("y", strHash("b", 0))},
		ex.FeatureSpace['z'].Indices)
}

func TestMalformedDiagnosticFormat(t *testing.T) {
	p, sink := newTestParser(t, nil)
	ex := p.NewExample()
	require.NoError(t, p.ParseLine([]byte("|a x:abc"), ex, 7))

	require.Len(t, sink.diags, 3)
	assert.Equal(t, errors.ErrorTypeNumeric, sink.diags[0].Kind)
	assert.Equal(t, `malformed example! Float expected after : "|a x:" in Example #7: "|a x:abc"`, sink.diags[0].Message)
	assert.Equal(t, uint64(7), sink.diags[0].Ordinal)
	assert.Equal(t, errors.ErrorTypeSyntax, sink.diags[1].Kind)
	assert.Equal(t, errors.ErrorTypeSyntax, sink.diags[2].Kind)
	assert.Empty(t, ex.Indices)
}

func TestDiagnosticTruncatesAtNUL(t *testing.T) {
	p, sink := newTestParser(t, nil)
	ex := p.NewExample()
	require.NoError(t, p.ParseLine([]byte("|a x:abc\x00hidden"), ex, 1))
	require.NotEmpty(t, sink.diags)
	assert.True(t, hasSuffix(sink.diags[0].Message, `in Example #1: "|a x:abc"`))
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func TestStrictNumericError(t *testing.T) {
	p, _ := newTestParser(t, func(c *Context) { c.Strict = true })
	err := p.ParseLine([]byte("|a x:abc"), p.NewExample(), 0)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNumeric))
	assert.True(t, errors.IsMalformed(err))
}

func TestTrailingGarbage(t *testing.T) {
	p, _ := newTestParser(t, func(c *Context) { c.Strict = true })
	err := p.ParseLine([]byte("|a x:1abc"), p.NewExample(), 0)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSyntax))

	err = p.ParseLine([]byte("|:1 x"), p.NewExample(), 0)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSyntax))
}

func TestLabelDiagnostics(t *testing.T) {
	p, sink := newTestParser(t, nil)
	ex := parse(t, p, "1 2 3 4 |a x")
	require.Len(t, sink.diags, 1)
	assert.Equal(t, errors.ErrorTypeLabel, sink.diags[0].Kind)
	assert.Equal(t, `malformed example! words.size() = 4 in Example #0: "1 2 3 4 |a x"`, sink.diags[0].Message)
	assert.Equal(t, []byte{'a'}, ex.Indices, "features survive a bad label in permissive mode")

	strict, _ := newTestParser(t, func(c *Context) { c.Strict = true })
	err := strict.ParseLine([]byte("abc |a x"), strict.NewExample(), 0)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeLabel))
}

func TestNoLabelParser(t *testing.T) {
	p, _ := newTestParser(t, nil, WithLabelParser(nil))
	ex := parse(t, p, "1 'tag |a x")
	assert.Nil(t, ex.Label)
	assert.Equal(t, "tag", string(ex.Tag))
	assert.Equal(t, []byte{'a'}, ex.Indices)
}

type recordingDictionary struct {
	entries map[string]*example.Features
	hashes  []uint64
}

func (d *recordingDictionary) Lookup(name []byte, h uint64) *example.Features {
	d.hashes = append(d.hashes, h)
	return d.entries[string(name)]
}

func TestDerivedFeatures(t *testing.T) {
	dict := &recordingDictionary{entries: map[string]*example.Features{
		"hello": {Values: []float32{0.5, 2}, Indices: []uint64{10, 20}, SumFeatSq: 4.25},
	}}
	p, _ := newTestParser(t, func(c *Context) {
		require.NoError(t, ParseAffix(c, "+2a,-3a"))
		require.NoError(t, ParseSpelling(c, []string{"a"}))
		c.AddDictionary("a", dict)
		c.Audit = true
	})

	ex := parse(t, p, "|a hello:2 missing:0 Hi")
	ch := strHash("a", 0)

	// derived namespaces register on first use, before the namespace that produced them closes
	assert.Equal(t, []byte{example.AffixNamespace, example.SpellingNamespace, example.DictionaryNamespace, 'a'}, ex.Indices)

	affix := ex.FeatureSpace[example.AffixNamespace]
	// descriptors come out low nibble first: "-3" was packed last
	suffix3 := uint64(3 << 1)
	prefix2 := uint64(2<<1 | 1)
	assert.Equal(t, []uint64{
		strHash("llo", ch) * (hash.AffixConstant + suffix3*hash.QuadraticConstant),
		strHash("he", ch) * (hash.AffixConstant + prefix2*hash.QuadraticConstant),
		strHash("Hi", ch) * (hash.AffixConstant + suffix3*hash.QuadraticConstant),
		strHash("Hi", ch) * (hash.AffixConstant + prefix2*hash.QuadraticConstant),
	}, affix.Indices)
	assert.Equal(t, []float32{2, 2, 1, 1}, affix.Values)
	assert.Equal(t, "affix^a-3=llo", affix.SpaceNames[0].String())
	assert.Equal(t, "affix^a+2=he", affix.SpaceNames[1].String())
	assert.Equal(t, "affix^a-3=Hi", affix.SpaceNames[2].String())

	spelling := ex.FeatureSpace[example.SpellingNamespace]
	assert.Equal(t, []uint64{strHash("aaaaa", ch), strHash("Aa", ch)}, spelling.Indices)
	assert.Equal(t, "spelling^a_aaaaa", spelling.SpaceNames[0].String())

	dictFs := ex.FeatureSpace[example.DictionaryNamespace]
	assert.Equal(t, []float32{0.5, 2}, dictFs.Values)
	assert.Equal(t, []uint64{10, 20}, dictFs.Indices)
	assert.Equal(t, float32(4.25), dictFs.SumFeatSq)
	assert.Equal(t, "dictionary^a_hello=10", dictFs.SpaceNames[0].String())
	assert.Equal(t, "dictionary^a_hello=20", dictFs.SpaceNames[1].String())
	// zero valued features never reach the dictionary
	assert.Equal(t, []uint64{
		hash.Uniform([]byte("hello"), hash.QuadraticConstant),
		hash.Uniform([]byte("Hi"), hash.QuadraticConstant),
	}, dict.hashes)

	for _, ns := range ex.Indices {
		fs := ex.FeatureSpace[ns]
		assert.Len(t, fs.SpaceNames, fs.Len(), "audit trail aligned for namespace %q", ns)
	}
}

func TestAffixShortNameAndDefaultNamespace(t *testing.T) {
	p, _ := newTestParser(t, func(c *Context) {
		require.NoError(t, ParseAffix(c, "-3"))
		c.Audit = true
	})
	ex := parse(t, p, "| hi")
	affix := ex.FeatureSpace[example.AffixNamespace]
	require.Equal(t, 1, affix.Len())
	assert.Equal(t, strHash("hi", 0)*(hash.AffixConstant+6*hash.QuadraticConstant), affix.Indices[0])
	assert.Equal(t, "affix^-3=hi", affix.SpaceNames[0].String())
}

func TestSpellingDefaultNamespaceAudit(t *testing.T) {
	p, _ := newTestParser(t, func(c *Context) {
		require.NoError(t, ParseSpelling(c, []string{"_"}))
		c.Audit = true
	})
	ex := parse(t, p, "| A1.b_2")
	spelling := ex.FeatureSpace[example.SpellingNamespace]
	assert.Equal(t, "spelling^A0.a#0", spelling.SpaceNames[0].String())
	assert.Equal(t, []uint64{strHash("A0.a#0", 0)}, spelling.Indices)
}

func TestFoldSpelling(t *testing.T) {
	assert.Equal(t, "A0.a#0", string(FoldSpelling(nil, []byte("A1.b_2"))))
	assert.Equal(t, "00aaAA##", string(FoldSpelling(nil, []byte("42xyQZ-é")[:8])))
	assert.Equal(t, "pre:a", string(FoldSpelling([]byte("pre:"), []byte("z"))))
}

func TestAuditBaseFeatures(t *testing.T) {
	p, _ := newTestParser(t, func(c *Context) { c.Audit = true })
	ex := parse(t, p, "|alpha x:2 | y")

	assert.Equal(t, []example.AuditStrings{{Namespace: "alpha", Feature: "x"}}, ex.FeatureSpace['a'].SpaceNames)
	assert.Equal(t, []example.AuditStrings{{Namespace: " ", Feature: "y"}}, ex.FeatureSpace[' '].SpaceNames)
}

func TestReadLines(t *testing.T) {
	p, sink := newTestParser(t, nil)
	first := p.NewExample()
	examples := []*example.Example{first}
	buf := []byte("1 |a x\n\n-1 |b y\r\n|c z")

	got, err := p.ReadLines(buf, examples, exampleSourceFunc(p.NewExample), 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Same(t, first, got[0])
	assert.Equal(t, []byte{'a'}, got[0].Indices)
	assert.Equal(t, []byte{'b'}, got[1].Indices)
	assert.Equal(t, float32(-1), simpleLabel(t, got[1]).Label)
	assert.Equal(t, []byte{'c'}, got[2].Indices)
	assert.Empty(t, sink.diags)
}

func TestReadLinesShrinksToPopulated(t *testing.T) {
	p, _ := newTestParser(t, nil)
	examples := []*example.Example{p.NewExample(), p.NewExample(), p.NewExample()}
	got, err := p.ReadLines([]byte("|a x\n"), examples, nil, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestReadLinesJoinsStrictFailures(t *testing.T) {
	p, _ := newTestParser(t, func(c *Context) { c.Strict = true })
	buf := []byte("|a x:abc\n1 |a y\n|b :1\n")

	got, err := p.ReadLines(buf, nil, exampleSourceFunc(p.NewExample), 100)
	require.Error(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []byte{'a'}, got[1].Indices)

	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.True(t, errors.IsType(errs[0], errors.ErrorTypeNumeric))
	assert.True(t, errors.IsType(errs[1], errors.ErrorTypeSyntax))

	var e *errors.Error
	require.True(t, errors.As(errs[1], &e))
	assert.Equal(t, uint64(102), e.Details["ordinal"])
}

type exampleSourceFunc func() *example.Example

func (f exampleSourceFunc) Get() *example.Example {
	return f()
}

func TestReadExample(t *testing.T) {
	p, _ := newTestParser(t, nil)
	r := testutil.NewChunkReader("\xEF\xBB\xBF1 |a x\n\n|b y")
	ex := p.NewExample()

	n, err := p.ReadExample(r, ex, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, float32(1), simpleLabel(t, ex).Label)
	assert.Equal(t, []byte{'a'}, ex.Indices)

	ex.Reset()
	n, err = p.ReadExample(r, ex, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, ex.Indices)

	ex.Reset()
	n, err = p.ReadExample(r, ex, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{'b'}, ex.Indices)

	ex.Reset()
	n, err = p.ReadExample(r, ex, 3)
	assert.Equal(t, 0, n)
	assert.True(t, errors.Is(err, ErrEndOfInput))
}

func TestReadExampleReaderFailure(t *testing.T) {
	p, _ := newTestParser(t, nil)
	r := &testutil.ChunkReader{Err: io.ErrUnexpectedEOF}

	_, err := p.ReadExample(r, p.NewExample(), 0)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrEndOfInput))
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestLogSinkWritesWarnings(t *testing.T) {
	log, logs := testutil.ObservedLogger(zapcore.WarnLevel)
	p := New(NewContext(), WithWarningSink(LogSink(log)))

	require.NoError(t, p.ParseLine([]byte("|a x:nan"), p.NewExample(), 9))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Contains(t, entry.Message, "read as NaN")
	assert.Equal(t, "numeric", entry.ContextMap()["kind"])
	assert.Equal(t, uint64(9), entry.ContextMap()["example"])
}

func TestConcurrentParsing(t *testing.T) {
	p, _ := newTestParser(t, func(c *Context) {
		require.NoError(t, ParseAffix(c, "+3"))
		require.NoError(t, ParseSpelling(c, []string{"_"}))
	})
	lines := make([]string, 64)
	for i := range lines {
		lines[i] = fmt.Sprintf("%d 'row%d | f%d:%d g h%d", i%2, i, i, i+1, i)
	}

	want := make([]*example.Example, len(lines))
	for i, line := range lines {
		want[i] = parse(t, p, line)
	}

	got := make([]*example.Example, len(lines))
	var wg sync.WaitGroup
	for i := range lines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ex := p.NewExample()
			_ = p.ParseLine([]byte(lines[i]), ex, uint64(i))
			got[i] = ex
		}(i)
	}
	wg.Wait()

	for i := range lines {
		assert.Equal(t, want[i].Indices, got[i].Indices)
		assert.Equal(t, want[i].Tag, got[i].Tag)
		for _, ns := range want[i].Indices {
			assert.Equal(t, want[i].FeatureSpace[ns].Indices, got[i].FeatureSpace[ns].Indices)
			assert.Equal(t, want[i].FeatureSpace[ns].Values, got[i].FeatureSpace[ns].Values)
		}
	}
}
