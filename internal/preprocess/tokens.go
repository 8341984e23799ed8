package preprocess

import (
	"strings"

	"github.com/leapstack-labs/achillesduck/pkg/core"
)

// DefaultTokens is the placeholder mapping applied when none is configured.
// Order matters when one placeholder is a prefix of another.
var DefaultTokens = []core.Token{
	{Token: "@scratchDatabaseSchema", Value: "achilles_scratch"},
	{Token: "@cdmDatabaseSchema", Value: "cdm"},
	{Token: "@tempAchillesPrefix", Value: "temp_achilles"},
	{Token: "@schemaDelim", Value: "."},
	{Token: "@source_name", Value: "Oxford"},
	{Token: "@achilles_version", Value: "Paris-0.0.1"},
}

// TokenSubstitutor replaces parameter placeholders with literal values.
type TokenSubstitutor struct {
	replacer *strings.Replacer
}

// NewTokenSubstitutor builds a substitutor for tokens. An empty list
// selects DefaultTokens. Placeholders with an empty name are ignored.
func NewTokenSubstitutor(tokens []core.Token) *TokenSubstitutor {
	if len(tokens) == 0 {
		tokens = DefaultTokens
	}
	pairs := make([]string, 0, len(tokens)*2)
	for _, t := range tokens {
		if t.Token == "" {
			continue
		}
		pairs = append(pairs, t.Token, t.Value)
	}
	return &TokenSubstitutor{replacer: strings.NewReplacer(pairs...)}
}

// Substitute replaces every occurrence of every placeholder in a single
// left-to-right pass. Replacement values are never rescanned.
func (s *TokenSubstitutor) Substitute(text string) string {
	return s.replacer.Replace(text)
}
