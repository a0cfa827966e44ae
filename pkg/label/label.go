// Package label holds the label parsers the line parser hands label tokens to.
// A label parser owns all label-specific validation; the line parser only
// tokenizes the label segment and strips the tag.
package label

import (
	"math"
	"strconv"

	"github.com/ajitpratap0/featline/pkg/errors"
	"github.com/ajitpratap0/featline/pkg/example"
	stringpool "github.com/ajitpratap0/featline/pkg/strings"
)

// Parser turns label tokens into a task-specific label.
// Implementations must be safe for concurrent use.
type Parser interface {
	// NewLabel allocates a label in its default state.
	NewLabel() example.Label
	// Parse populates lbl from the label tokens of one line.
	Parse(words [][]byte, lbl example.Label) error
}

// Lookup returns the label parser registered under name.
func Lookup(name string) (Parser, error) {
	switch name {
	case "", "simple":
		return Simple{}, nil
	case "none":
		return None{}, nil
	default:
		return nil, errors.New(errors.ErrorTypeConfig, "unknown label type").
			WithDetail("label", name)
	}
}

// SimpleLabel is the regression/binary label: value, importance weight and
// initial prediction.
type SimpleLabel struct {
	Label   float32 `json:"label"`
	Weight  float32 `json:"weight"`
	Initial float32 `json:"initial"`
}

// Reset restores the unlabeled default.
func (l *SimpleLabel) Reset() {
	l.Label = math.MaxFloat32
	l.Weight = 1
	l.Initial = 0
}

// IsLabeled reports whether a label value was parsed.
func (l *SimpleLabel) IsLabeled() bool {
	return l.Label != math.MaxFloat32
}

// Simple parses "label [weight [initial]]".
type Simple struct{}

// NewLabel returns an unlabeled SimpleLabel.
func (Simple) NewLabel() example.Label {
	l := &SimpleLabel{}
	l.Reset()
	return l
}

// Parse implements Parser.
func (Simple) Parse(words [][]byte, lbl example.Label) error {
	sl, ok := lbl.(*SimpleLabel)
	if !ok {
		return errors.New(errors.ErrorTypeInternal, "simple label parser given a foreign label type")
	}

	if len(words) > 3 {
		return errors.New(errors.ErrorTypeLabel, stringpool.Sprintf("malformed example! words.size() = %d", len(words))).
			WithDetail("words", len(words))
	}

	targets := [...]*float32{&sl.Label, &sl.Weight, &sl.Initial}
	for i, w := range words {
		v, err := parseLabelFloat(w)
		if err != nil {
			return err
		}
		*targets[i] = v
	}
	return nil
}

// None ignores label tokens; used for unlabeled prediction inputs.
type None struct{}

// NoLabel is the label None produces.
type NoLabel struct{}

// Reset implements example.Label.
func (*NoLabel) Reset() {}

// NewLabel returns a NoLabel.
func (None) NewLabel() example.Label {
	return &NoLabel{}
}

// Parse implements Parser.
func (None) Parse([][]byte, example.Label) error {
	return nil
}

func parseLabelFloat(w []byte) (float32, error) {
	v, err := strconv.ParseFloat(stringpool.BytesToString(w), 32)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeLabel, stringpool.Sprintf("malformed label value %q", w))
	}
	return float32(v), nil
}
