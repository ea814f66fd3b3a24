package brite

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// bracketBlock is the participle grammar for a trailing metadata block.
// Examples: "[EC:2.7.1.1]", "[EC:1.1.1.1 1.1.1.71]", "[BR:ko01000]",
// "[PATH:ko00010 BR:ko00001]"
//
//nolint:govet // participle grammar tags are not standard struct tags
type bracketBlock struct {
	Fields []*bracketField `parser:"\"[\" @@+ \"]\""`
}

//nolint:govet // participle grammar tags are not standard struct tags
type bracketField struct {
	Key    string   `parser:"@Key"`
	Values []string `parser:"@Word*"`
}

// bracketLexer tokenizes bracket blocks. Key must come before Word so that
// "BR:" is read as a key and "ko01000" as its value.
var bracketLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Key", Pattern: `[A-Za-z][A-Za-z0-9_]*:`},
	{Name: "Word", Pattern: `[^\s\[\]]+`},
	{Name: "Bracket", Pattern: `[\[\]]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var bracketParser = participle.MustBuild[bracketBlock](
	participle.Lexer(bracketLexer),
	participle.Elide("Whitespace"),
)

// field is one decoded KEY:values entry of a bracket block.
type field struct {
	Key    string
	Values []string
}

// parseBracket decodes a "[...]" block into its fields.
func parseBracket(block string) ([]field, error) {
	parsed, err := bracketParser.ParseString("", block)
	if err != nil {
		return nil, err
	}
	out := make([]field, 0, len(parsed.Fields))
	for _, f := range parsed.Fields {
		out = append(out, field{
			Key:    strings.TrimSuffix(f.Key, ":"),
			Values: f.Values,
		})
	}
	return out, nil
}

// String renders the field the way it appears in the source.
func (f field) String() string {
	return f.Key + ":" + strings.Join(f.Values, " ")
}
