// Package featline turns text-format sparse feature lines into hashed
// examples for online learners.
//
// An input line looks like
//
//	[label] ['tag] |namespace[:weight] feature[:value] ... |namespace ...
//
// Every feature name is hashed under its namespace into a 64-bit index
// (optionally masked to 2^bits), zero-valued features are dropped, and
// affix, spelling and dictionary features can be derived per namespace.
// Malformed input never aborts a permissive parse: the offending token is
// reported and parsing resumes at the next safe point.
//
// # Quick Start
//
//	import (
//	    "github.com/ajitpratap0/featline/pkg/config"
//	    "github.com/ajitpratap0/featline/pkg/parser"
//	)
//
//	cfg := config.NewConfig("train")
//	cfg.Hashing.Bits = 20
//	cfg.Features.Affix = "+2a,-3b"
//
//	pctx, _ := parser.NewContextFromConfig(cfg)
//	p := parser.New(pctx)
//	ex := p.NewExample()
//	err := p.ParseLine([]byte("1 'row1 |a the:2 cat |b sat"), ex, 0)
//
// # Key Packages
//
//	pkg/parser       - Line grammar, hashing and derived features
//	pkg/example      - Sparse example representation
//	pkg/label        - Label parsers (simple, none)
//	pkg/hash         - Feature hash functions
//	pkg/dictionary   - Feature dictionaries loaded from files
//	pkg/source       - Local, stdin, S3 and GCS inputs
//	pkg/compression  - Transparent (de)compression by file extension
//	pkg/mmap         - Memory-mapped local inputs
//	pkg/pool         - Example and buffer pooling
//	pkg/json         - JSON encoding of examples
//	pkg/config       - YAML configuration with ${VAR} expansion
//	pkg/errors       - Structured error handling
//	pkg/logger       - Structured logging
//	pkg/metrics      - Prometheus metrics
//	pkg/observability - OpenTelemetry tracing
//	internal/pipeline - Ordered parallel parsing of line streams
//
// # Command Line
//
//	featline parse --bits 20 --output json train.txt.gz
//	featline parse --config featline.yaml s3://bucket/train.zst
//
// Environment variables override config files with the FEATLINE_ prefix,
// e.g. FEATLINE_PARSING_STRICT=true.
package featline
