package parser

import (
	"github.com/ajitpratap0/featline/pkg/example"
	stringpool "github.com/ajitpratap0/featline/pkg/strings"
)

// Namespace names used in audit records for derived features.
const (
	AffixAuditNamespace      = "affix"
	SpellingAuditNamespace   = "spelling"
	DictionaryAuditNamespace = "dictionary"
)

// recorder keeps the audit trail aligned with the feature arrays. Every
// call follows exactly one append to the same Features.
type recorder interface {
	feature(fs *example.Features, namespace, name []byte)
	affix(fs *example.Features, index byte, prefix bool, length int, affix []byte)
	spelling(fs *example.Features, index byte, folded []byte)
	dictionary(fs *example.Features, index byte, name []byte, ids []uint64)
}

type silentRecorder struct{}

func (silentRecorder) feature(*example.Features, []byte, []byte)             {}
func (silentRecorder) affix(*example.Features, byte, bool, int, []byte)      {}
func (silentRecorder) spelling(*example.Features, byte, []byte)              {}
func (silentRecorder) dictionary(*example.Features, byte, []byte, []uint64) {}

type auditRecorder struct{}

func (auditRecorder) feature(fs *example.Features, namespace, name []byte) {
	fs.SpaceNames = append(fs.SpaceNames, example.AuditStrings{
		Namespace: string(namespace),
		Feature:   string(name),
	})
}

// affix records "[ns]+N=text" for prefixes and "[ns]-N=text" for suffixes.
func (auditRecorder) affix(fs *example.Features, index byte, prefix bool, length int, affix []byte) {
	name := stringpool.BuildString(stringpool.Small, func(b *stringpool.Builder) {
		if index != example.DefaultNamespace {
			_ = b.WriteByte(index)
		}
		if prefix {
			_ = b.WriteByte('+')
		} else {
			_ = b.WriteByte('-')
		}
		_ = b.WriteByte(byte('0' + length))
		_ = b.WriteByte('=')
		b.WriteBytes(affix)
	})
	fs.SpaceNames = append(fs.SpaceNames, example.AuditStrings{
		Namespace: AffixAuditNamespace,
		Feature:   name,
	})
}

func (auditRecorder) spelling(fs *example.Features, index byte, folded []byte) {
	name := stringpool.BuildString(stringpool.Small, func(b *stringpool.Builder) {
		if index != example.DefaultNamespace {
			_ = b.WriteByte(index)
			_ = b.WriteByte('_')
		}
		b.WriteBytes(folded)
	})
	fs.SpaceNames = append(fs.SpaceNames, example.AuditStrings{
		Namespace: SpellingAuditNamespace,
		Feature:   name,
	})
}

// dictionary records one "ns_word=id" entry per copied feature.
func (auditRecorder) dictionary(fs *example.Features, index byte, name []byte, ids []uint64) {
	for _, id := range ids {
		feature := stringpool.BuildString(stringpool.Small, func(b *stringpool.Builder) {
			_ = b.WriteByte(index)
			_ = b.WriteByte('_')
			b.WriteBytes(name)
			_ = b.WriteByte('=')
			b.AppendUint(id)
		})
		fs.SpaceNames = append(fs.SpaceNames, example.AuditStrings{
			Namespace: DictionaryAuditNamespace,
			Feature:   feature,
		})
	}
}
