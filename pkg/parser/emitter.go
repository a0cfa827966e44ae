package parser

import (
	"github.com/ajitpratap0/featline/pkg/example"
	"github.com/ajitpratap0/featline/pkg/hash"
)

// emit hashes one feature and appends it, together with any affix,
// spelling and dictionary features the current namespace asks for.
func (p *lineParser) emit(name []byte, v float32) {
	var word uint64
	if len(name) > 0 {
		word = p.ctx.Hasher(name, p.channelHash) & p.ctx.ParseMask
	} else {
		// the anonymous counter advances even for zero values so later
		// anonymous features keep their positions
		word = p.channelHash + p.anon
		p.anon++
	}
	if v == 0 {
		return
	}

	fs := &p.ex.FeatureSpace[p.index]
	fs.PushBack(v, word)
	p.rec.feature(fs, p.base, name)

	if len(name) == 0 {
		return
	}
	if p.ctx.Affix[p.index] > 0 {
		p.emitAffixes(name, v)
	}
	if p.ctx.Spelling[p.index] {
		p.emitSpelling(name, v)
	}
	if dicts := p.ctx.Dictionaries[p.index]; len(dicts) > 0 {
		p.emitDictionaries(dicts, name)
	}
}

// emitAffixes walks the packed affix descriptors of the namespace, four bits
// at a time: bit 0 selects prefix, bits 1-3 hold the length.
func (p *lineParser) emitAffixes(name []byte, v float32) {
	fs := p.claim(example.AffixNamespace)
	for affix := p.ctx.Affix[p.index]; affix > 0; affix >>= 4 {
		prefix := affix&0x1 == 1
		n := int((affix >> 1) & 0x7)
		part := name
		if len(part) > n {
			if prefix {
				part = part[:n]
			} else {
				part = part[len(part)-n:]
			}
		}
		word := p.ctx.Hasher(part, p.channelHash) *
			(hash.AffixConstant + (affix&0xF)*hash.QuadraticConstant)
		fs.PushBack(v, word)
		p.rec.affix(fs, p.index, prefix, n, part)
	}
}

func (p *lineParser) emitSpelling(name []byte, v float32) {
	fs := p.claim(example.SpellingNamespace)
	folded := FoldSpelling(p.spellBuf[:0], name)
	fs.PushBack(v, hash.Strings(folded, p.channelHash))
	p.rec.spelling(fs, p.index, folded)
}

func (p *lineParser) emitDictionaries(dicts []Dictionary, name []byte) {
	key := hash.Uniform(name, hash.QuadraticConstant)
	for _, d := range dicts {
		feats := d.Lookup(name, key)
		if feats == nil || feats.Empty() {
			continue
		}
		fs := p.claim(example.DictionaryNamespace)
		fs.Values = append(fs.Values, feats.Values...)
		fs.Indices = append(fs.Indices, feats.Indices...)
		fs.SumFeatSq += feats.SumFeatSq
		p.rec.dictionary(fs, p.index, name, feats.Indices)
	}
}

// claim returns the features of a derived namespace, registering the
// namespace as active on first use.
func (p *lineParser) claim(ns byte) *example.Features {
	fs := &p.ex.FeatureSpace[ns]
	if fs.Empty() && !p.ex.HasNamespace(ns) {
		p.ex.Indices = append(p.ex.Indices, ns)
	}
	return fs
}

// FoldSpelling appends the character-class shape of name to dst: digits
// become '0', lowercase 'a', uppercase 'A', '.' stays and anything else is '#'.
func FoldSpelling(dst, name []byte) []byte {
	for _, c := range name {
		switch {
		case '0' <= c && c <= '9':
			c = '0'
		case 'a' <= c && c <= 'z':
			c = 'a'
		case 'A' <= c && c <= 'Z':
			c = 'A'
		case c == '.':
		default:
			c = '#'
		}
		dst = append(dst, c)
	}
	return dst
}
