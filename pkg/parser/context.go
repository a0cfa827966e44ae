package parser

import (
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/featline/pkg/config"
	"github.com/ajitpratap0/featline/pkg/errors"
	"github.com/ajitpratap0/featline/pkg/example"
	"github.com/ajitpratap0/featline/pkg/hash"
	"github.com/ajitpratap0/featline/pkg/logger"
)

// Dictionary maps a feature name to a precomputed feature vector. hash is
// the name hashed with hash.Uniform under hash.QuadraticConstant.
type Dictionary interface {
	Lookup(name []byte, hash uint64) *example.Features
}

// Context is the read-only configuration shared by every parse call.
// Build it once, then never mutate it while parsers are running.
type Context struct {
	HashSeed uint32
	Hasher   hash.Func

	// Redefine maps a namespace's first byte to its effective index. It is
	// only consulted when RedefineSome is set.
	Redefine     [256]byte
	RedefineSome bool

	// ParseMask is applied to named feature hashes.
	ParseMask uint64

	// Affix packs up to sixteen 4-bit descriptors per namespace.
	Affix        [256]uint64
	Spelling     [256]bool
	Dictionaries [256][]Dictionary

	Strict bool
	Audit  bool
}

// NewContext returns a context with the "strings" hasher, no mask, an
// identity redefine table and no derived features.
func NewContext() *Context {
	c := &Context{
		Hasher:    hash.Strings,
		ParseMask: ^uint64(0),
	}
	for i := range c.Redefine {
		c.Redefine[i] = byte(i)
	}
	return c
}

// NewContextFromConfig builds a context from the hashing, features and
// parsing sections. Dictionaries are attached separately with AddDictionary.
func NewContextFromConfig(cfg *config.Config) (*Context, error) {
	c := NewContext()

	hasher, err := hash.Lookup(cfg.Hashing.Function)
	if err != nil {
		return nil, err
	}
	c.Hasher = hasher
	c.HashSeed = cfg.Hashing.Seed
	c.ParseMask = cfg.Hashing.Mask()
	c.Strict = cfg.Parsing.Strict
	c.Audit = cfg.Parsing.Audit

	if cfg.Features.Affix != "" {
		if err := ParseAffix(c, cfg.Features.Affix); err != nil {
			return nil, err
		}
	}
	if err := ParseSpelling(c, cfg.Features.Spelling); err != nil {
		return nil, err
	}
	if err := ParseRedefine(c, cfg.Features.Redefine); err != nil {
		return nil, err
	}
	return c, nil
}

// AddDictionary attaches d to every namespace in namespaces. An empty
// list means the default namespace.
func (c *Context) AddDictionary(namespaces string, d Dictionary) {
	if namespaces == "" {
		namespaces = string(example.DefaultNamespace)
	}
	for i := 0; i < len(namespaces); i++ {
		ns := namespaces[i]
		c.Dictionaries[ns] = append(c.Dictionaries[ns], d)
	}
}

// ParseAffix reads a comma separated list such as "+2a,-3b,1". Each item is
// an optional sign ('+' prefix, the default, or '-' suffix), a length from
// 1 to 7 and an optional namespace character; without one the default
// namespace is used. Later items for the same namespace are packed above
// earlier ones.
func ParseAffix(c *Context, spec string) error {
	for _, item := range strings.Split(spec, ",") {
		if item == "" {
			continue
		}
		i := 0
		prefix := uint64(1)
		switch item[0] {
		case '+':
			i++
		case '-':
			prefix = 0
			i++
		}
		if i >= len(item) || item[i] < '1' || item[i] > '7' {
			return errors.New(errors.ErrorTypeConfig, "affix length must be between 1 and 7").
				WithDetail("affix", item)
		}
		length := uint64(item[i] - '0')
		i++

		ns := example.DefaultNamespace
		if i < len(item) {
			ns = item[i]
			if ns == '|' || ns == ':' {
				return errors.New(errors.ErrorTypeConfig, "affix namespace cannot be '|' or ':'").
					WithDetail("affix", item)
			}
			i++
		}
		if i != len(item) {
			return errors.New(errors.ErrorTypeConfig, "malformed affix item").
				WithDetail("affix", item)
		}

		c.Affix[ns] = c.Affix[ns]<<4 | (length<<1 | prefix)
	}
	return nil
}

// ParseSpelling enables spelling features for the first byte of each entry.
// "_" stands for the default namespace.
func ParseSpelling(c *Context, namespaces []string) error {
	for _, spelling := range namespaces {
		if spelling == "" {
			return errors.New(errors.ErrorTypeConfig, "empty spelling namespace")
		}
		ns := spelling[0]
		if spelling == "_" {
			ns = example.DefaultNamespace
		}
		c.Spelling[ns] = true
	}
	return nil
}

// ParseRedefine applies rules of the form N:=S. Every namespace in S is
// mapped to N; an empty N is the default namespace, an empty S means the
// default namespace and a ':' in S redefines all 256 namespaces.
func ParseRedefine(c *Context, rules []string) error {
	for _, rule := range rules {
		op := strings.Index(rule, ":=")
		if op < 0 {
			return errors.New(errors.ErrorTypeConfig,
				"argument of redefine is malformed. Valid format is N:=S, :=S or N:=").
				WithDetail("rule", rule)
		}

		target := example.DefaultNamespace
		if op > 0 {
			target = rule[0]
		}
		if op > 1 {
			logger.Get().Warn("multiple namespaces used in target part of redefine; only the first is used",
				zap.String("rule", rule),
				zap.String("target", string(target)))
		}
		c.RedefineSome = true

		sources := rule[op+2:]
		if sources == "" {
			c.Redefine[example.DefaultNamespace] = target
			continue
		}
		for i := 0; i < len(sources); i++ {
			if sources[i] == ':' {
				for j := range c.Redefine {
					c.Redefine[j] = target
				}
				break
			}
			c.Redefine[sources[i]] = target
		}
	}
	return nil
}
