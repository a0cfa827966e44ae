package parser

import (
	"math"

	"github.com/ajitpratap0/featline/pkg/errors"
	"github.com/ajitpratap0/featline/pkg/example"
	"github.com/ajitpratap0/featline/pkg/hash"
)

// The feature segment grammar, starting at the first '|':
//
//	ListNameSpace := ('|' NameSpace)*
//	NameSpace     := ListFeatures | NameSpaceInfo ListFeatures
//	NameSpaceInfo := Name (':' Float)?
//	ListFeatures  := ((' ' | '\t') MaybeFeature)*
//	MaybeFeature  := ε | Name (':' Float)?
//
// A terminator is end of input, ' ', '\t', '|' or '\r'. Names also stop at ':'.

// anonymousBase is the audit namespace name of features written before any
// namespace name.
var anonymousBase = []byte{example.DefaultNamespace}

// lineParser holds the state of one parse call. It is never shared.
type lineParser struct {
	ctx  *Context
	line []byte
	idx  int
	ex   *example.Example
	rec  recorder
	diag *reporter

	channelValue float32
	channelHash  uint64
	anon         uint64
	index        byte
	newIndex     bool
	base         []byte

	spellBuf [64]byte
}

func (p *lineParser) atTerminator() bool {
	if p.idx >= len(p.line) {
		return true
	}
	switch p.line[p.idx] {
	case ' ', '\t', '|', '\r':
		return true
	}
	return false
}

func (p *lineParser) readName() []byte {
	start := p.idx
	for p.idx < len(p.line) {
		switch p.line[p.idx] {
		case ' ', ':', '\t', '|', '\r':
			return p.line[start:p.idx]
		}
		p.idx++
	}
	return p.line[start:p.idx]
}

// featureValue parses the optional ":value" after a feature name. A
// malformed or NaN value comes back as 0 together with its diagnostic.
func (p *lineParser) featureValue() (float32, *Diagnostic) {
	if p.atTerminator() {
		return 1, nil
	}
	if p.line[p.idx] != ':' {
		return 0, p.diag.diagnose(errors.ErrorTypeSyntax,
			`malformed example! '|', ':', space, or EOL expected after : "`, p.line[:p.idx], `"`)
	}

	p.idx++
	v, n := parseFloat(p.line[p.idx:])
	if n == 0 {
		return 0, p.diag.diagnose(errors.ErrorTypeNumeric,
			`malformed example! Float expected after : "`, p.line[:p.idx], `"`)
	}
	start := p.idx
	p.idx += n
	if math.IsNaN(float64(v)) {
		return 0, p.diag.diagnose(errors.ErrorTypeNumeric,
			`warning: invalid feature value:"`, p.line[start:p.idx], `" read as NaN. Replacing with 0.`)
	}
	return v, nil
}

func (p *lineParser) maybeFeature() error {
	if p.atTerminator() {
		return nil
	}

	name := p.readName()
	if len(name) == 0 {
		// readName only stops immediately at ':'
		d := p.diag.diagnose(errors.ErrorTypeSyntax,
			`malformed example! String expected before : "`, p.line[:p.idx+1], `"`)
		if err := p.diag.report(d); err != nil {
			return err
		}
	}

	v, d := p.featureValue()
	if err := p.diag.report(d); err != nil {
		return err
	}
	p.emit(name, p.channelValue*v)
	return nil
}

func (p *lineParser) nameSpaceInfoValue() error {
	if p.atTerminator() {
		return nil
	}
	if p.line[p.idx] != ':' {
		return p.diag.report(p.diag.diagnose(errors.ErrorTypeSyntax,
			`malformed example! '|',':', space, or EOL expected after : "`, p.line[:p.idx], `"`))
	}

	p.idx++
	v, n := parseFloat(p.line[p.idx:])
	if n == 0 {
		p.channelValue = 1
		return p.diag.report(p.diag.diagnose(errors.ErrorTypeNumeric,
			`malformed example! Float expected after : "`, p.line[:p.idx], `"`))
	}
	start := p.idx
	p.idx += n
	if math.IsNaN(float64(v)) {
		p.channelValue = 1
		return p.diag.report(p.diag.diagnose(errors.ErrorTypeNumeric,
			`warning: invalid namespace value:"`, p.line[start:p.idx], `" read as NaN. Replacing with 1.`))
	}
	p.channelValue = v
	return nil
}

func (p *lineParser) nameSpaceInfo() error {
	if p.atTerminator() || p.line[p.idx] == ':' {
		return p.diag.report(p.diag.diagnose(errors.ErrorTypeSyntax,
			`malformed example! String expected after : "`, p.line[:p.idx], `"`))
	}

	p.index = p.line[p.idx]
	if p.ctx.RedefineSome {
		p.index = p.ctx.Redefine[p.index]
	}
	if p.ex.FeatureSpace[p.index].Empty() {
		p.newIndex = true
	}

	name := p.readName()
	p.base = name
	p.channelHash = p.ctx.Hasher(name, uint64(p.ctx.HashSeed))
	return p.nameSpaceInfoValue()
}

func (p *lineParser) listFeatures() error {
	for p.idx < len(p.line) && (p.line[p.idx] == ' ' || p.line[p.idx] == '\t') {
		p.idx++
		if err := p.maybeFeature(); err != nil {
			return err
		}
	}
	if p.idx < len(p.line) && p.line[p.idx] != '|' && p.line[p.idx] != '\r' {
		return p.diag.report(p.diag.diagnose(errors.ErrorTypeSyntax,
			`malformed example! '|',space, or EOL expected after : "`, p.line[:p.idx], `"`))
	}
	return nil
}

func (p *lineParser) nameSpace() error {
	p.channelValue = 1
	p.index = 0
	p.newIndex = false
	p.anon = 0

	var err error
	switch {
	case p.atTerminator():
		p.index = example.DefaultNamespace
		if p.ex.FeatureSpace[p.index].Empty() {
			p.newIndex = true
		}
		p.base = anonymousBase
		p.channelHash = 0
		if p.ctx.HashSeed != 0 {
			p.channelHash = hash.Uniform(nil, uint64(p.ctx.HashSeed))
		}
		err = p.listFeatures()
	case p.line[p.idx] != ':':
		if err = p.nameSpaceInfo(); err == nil {
			err = p.listFeatures()
		}
	default:
		err = p.diag.report(p.diag.diagnose(errors.ErrorTypeSyntax,
			`malformed example! '|',String,space, or EOL expected after : "`, p.line[:p.idx], `"`))
	}

	if p.newIndex && !p.ex.FeatureSpace[p.index].Empty() && !p.ex.HasNamespace(p.index) {
		p.ex.Indices = append(p.ex.Indices, p.index)
	}
	return err
}

func (p *lineParser) listNameSpace() error {
	for p.idx < len(p.line) && p.line[p.idx] == '|' {
		p.idx++
		if err := p.nameSpace(); err != nil {
			return err
		}
	}
	if p.idx < len(p.line) && p.line[p.idx] != '\r' {
		return p.diag.report(p.diag.diagnose(errors.ErrorTypeSyntax,
			`malformed example! '|' or EOL expected after : "`, p.line[:p.idx], `"`))
	}
	return nil
}
