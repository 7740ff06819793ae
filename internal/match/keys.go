package match

import (
	"strings"

	"github.com/halcyonpay/amlscreen/internal/model"
)

// Keys are the precomputed match columns stored alongside each indexed
// entity: the accent-stripped display name, its token list, per-token
// soundex codes, and the same three views over the alias set. Keys are a
// pure function of the entity and carry no state of their own, so they can
// be rebuilt from the entities table at any time.
type Keys struct {
	NameASCII    string
	NameTokens   string
	NameSoundex  string
	AliasASCII   string
	AliasTokens  string
	AliasSoundex string
}

// BuildKeys derives the match columns for one entity.
func BuildKeys(e *model.Entity) Keys {
	name := e.DisplayName()
	nameTokens := KeyTokens(name)

	aliases := e.Aliases.Values()
	asciiParts := make([]string, 0, len(aliases))
	var aliasTokens []string
	seen := make(map[string]bool)
	for _, alias := range aliases {
		ascii := NormalizeTextStripped(alias)
		if ascii == "" {
			continue
		}
		asciiParts = append(asciiParts, ascii)
		for _, t := range KeyTokens(alias) {
			if !seen[t] {
				seen[t] = true
				aliasTokens = append(aliasTokens, t)
			}
		}
	}

	return Keys{
		NameASCII:    NormalizeTextStripped(name),
		NameTokens:   strings.Join(nameTokens, " "),
		NameSoundex:  SoundexTokens(nameTokens),
		AliasASCII:   strings.Join(asciiParts, " | "),
		AliasTokens:  strings.Join(aliasTokens, " "),
		AliasSoundex: SoundexTokens(aliasTokens),
	}
}
