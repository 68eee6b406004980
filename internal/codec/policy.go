package codec

import (
	"fmt"
	"strings"
)

// Policy decides the framing of output files independently of their input.
type Policy string

// Output format policies.
const (
	// PolicyMatchInput keeps the input file name, and therefore its framing.
	PolicyMatchInput Policy = "match-input"
	// PolicyPlain strips any compressed suffix.
	PolicyPlain Policy = "plain"
	// PolicyGzip forces gzip framing.
	PolicyGzip Policy = NameGzip
	// PolicyZstd forces zstd framing.
	PolicyZstd Policy = NameZstd
	// PolicyLZ4 forces lz4 framing.
	PolicyLZ4 Policy = NameLZ4
)

var policyAliases = map[string]Policy{
	"":            PolicyMatchInput,
	"match-input": PolicyMatchInput,
	"match":       PolicyMatchInput,
	"plain":       PolicyPlain,
	"plaintext":   PolicyPlain,
	"gzip":        PolicyGzip,
	"gzipped":     PolicyGzip,
	"compressed":  PolicyGzip,
	"zstd":        PolicyZstd,
	"lz4":         PolicyLZ4,
}

// ParsePolicy resolves a policy name or one of its aliases. Matching ignores case.
func ParsePolicy(s string) (Policy, error) {
	p, ok := policyAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown output format %q (expected one of: %s)", s, strings.Join(PolicyNames(), ", "))
	}
	return p, nil
}

// PolicyNames lists the canonical policy names.
func PolicyNames() []string {
	return []string{
		string(PolicyMatchInput),
		string(PolicyPlain),
		string(PolicyGzip),
		string(PolicyZstd),
		string(PolicyLZ4),
	}
}

// ApplyPolicy returns the output file name for an input file name under p.
//
//	nodes.txt.gz + plain -> nodes.txt
//	nodes.txt    + gzip  -> nodes.txt.gz
//	nodes.txt.gz + gzip  -> nodes.txt.gz
//	nodes.txt.gz + zstd  -> nodes.txt.zst
func ApplyPolicy(name string, p Policy) string {
	switch p {
	case PolicyPlain:
		return StripSuffix(name)
	case PolicyMatchInput, "":
		return name
	}

	target, ok := Lookup(string(p))
	if !ok {
		return name
	}
	if ForPath(name) == target {
		return name
	}
	return StripSuffix(name) + target.Suffix()
}
