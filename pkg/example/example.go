// Package example defines the in-memory sparse representation that the parser
// produces and downstream learners consume.
//
// An Example groups features into up to 256 namespaces, each keyed by a single
// byte. Every namespace holds a sparse vector of (value, index) pairs and, when
// audit mode is on, a parallel list of human-readable labels. Examples are meant
// to be pooled: Reset keeps every backing array so a recycled example parses the
// next line without allocating.
package example

const (
	// DefaultNamespace keys features written before any namespace name.
	DefaultNamespace byte = ' '
	// ConstantNamespace is reserved for the learner's bias feature.
	ConstantNamespace byte = 128
	// AffixNamespace receives prefix/suffix derived features.
	AffixNamespace byte = 132
	// SpellingNamespace receives character-class derived features.
	SpellingNamespace byte = 133
	// DictionaryNamespace receives features copied from feature dictionaries.
	DictionaryNamespace byte = 135
)

// AuditStrings is the human-readable name of one feature.
type AuditStrings struct {
	Namespace string `json:"namespace"`
	Feature   string `json:"feature"`
}

// String renders the label the way audit output prints it: namespace^feature.
func (a AuditStrings) String() string {
	return a.Namespace + "^" + a.Feature
}

// Features is the sparse vector of one namespace.
type Features struct {
	Values  []float32
	Indices []uint64
	// SpaceNames is aligned 1:1 with Values when audit mode is on, empty otherwise.
	SpaceNames []AuditStrings
	// SumFeatSq is the running sum of squared values, used for normalization.
	SumFeatSq float32
}

// PushBack appends one feature and updates the running sum of squares.
func (f *Features) PushBack(v float32, index uint64) {
	f.Values = append(f.Values, v)
	f.Indices = append(f.Indices, index)
	f.SumFeatSq += v * v
}

// Len returns the number of features.
func (f *Features) Len() int {
	return len(f.Values)
}

// Empty reports whether the vector has no features.
func (f *Features) Empty() bool {
	return len(f.Values) == 0
}

// Clear drops all features but keeps capacity.
func (f *Features) Clear() {
	f.Values = f.Values[:0]
	f.Indices = f.Indices[:0]
	for i := range f.SpaceNames {
		f.SpaceNames[i] = AuditStrings{}
	}
	f.SpaceNames = f.SpaceNames[:0]
	f.SumFeatSq = 0
}

// Label is implemented by task-specific label types. Reset restores the
// label's default value so a pooled example starts unlabeled.
type Label interface {
	Reset()
}

// Example is one parsed input line.
type Example struct {
	// Indices lists active namespaces in first-seen order; each appears once.
	Indices []byte
	// FeatureSpace holds one sparse vector per namespace byte.
	FeatureSpace [256]Features
	// Tag is the optional identifier taken from the end of the label segment.
	Tag []byte
	// Label is populated by the label parser; may be nil when no parser is configured.
	Label Label
}

// New returns an empty example carrying lbl.
func New(lbl Label) *Example {
	if lbl != nil {
		lbl.Reset()
	}
	return &Example{Label: lbl}
}

// Reset clears the example for reuse while keeping every backing array.
func (e *Example) Reset() {
	// a namespace can hold features without being listed if a strict parse aborted
	for i := range e.FeatureSpace {
		if !e.FeatureSpace[i].Empty() {
			e.FeatureSpace[i].Clear()
		}
	}
	e.Indices = e.Indices[:0]
	e.Tag = e.Tag[:0]
	if e.Label != nil {
		e.Label.Reset()
	}
}

// HasNamespace reports whether ns is in the active set.
func (e *Example) HasNamespace(ns byte) bool {
	for _, i := range e.Indices {
		if i == ns {
			return true
		}
	}
	return false
}

// NumFeatures counts features across active namespaces.
func (e *Example) NumFeatures() int {
	n := 0
	for _, ns := range e.Indices {
		n += e.FeatureSpace[ns].Len()
	}
	return n
}

// TotalSumFeatSq sums the running squared norms of the active namespaces.
func (e *Example) TotalSumFeatSq() float32 {
	var total float32
	for _, ns := range e.Indices {
		total += e.FeatureSpace[ns].SumFeatSq
	}
	return total
}
