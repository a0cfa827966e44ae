package parser

import "bytes"

// splitLabel tokenizes the label segment (everything before the first '|')
// on spaces. Anything up to and including the first tab is ignored. The
// last token is the tag when it runs to the end of the segment or starts
// with a quote; a leading quote is dropped from the tag.
func splitLabel(segment []byte, words [][]byte) (rest [][]byte, tag []byte, hasTag bool) {
	if i := bytes.IndexByte(segment, '\t'); i >= 0 {
		segment = segment[i+1:]
	}
	words = tokenize(segment, ' ', words)
	if len(words) == 0 {
		return words, nil, false
	}

	last := words[len(words)-1]
	endsSegment := segment[len(segment)-1] != ' '
	if !endsSegment && last[0] != '\'' {
		return words, nil, false
	}
	if last[0] == '\'' {
		last = last[1:]
	}
	return words[:len(words)-1], last, true
}

// tokenize appends the non-empty runs of s separated by sep to dst.
func tokenize(s []byte, sep byte, dst [][]byte) [][]byte {
	for len(s) > 0 {
		i := bytes.IndexByte(s, sep)
		if i < 0 {
			return append(dst, s)
		}
		if i > 0 {
			dst = append(dst, s[:i])
		}
		s = s[i+1:]
	}
	return dst
}
