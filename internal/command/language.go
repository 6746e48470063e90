package command

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"splice/internal/services"
)

var languageNames = sync.OnceValue(func() map[string]language.Tag {
	names := make(map[string]language.Tag)
	english := display.English.Tags()
	for _, tag := range display.Supported.Tags() {
		for _, name := range []string{english.Name(tag), display.Self.Name(tag)} {
			key := strings.ToLower(strings.TrimSpace(name))
			if key == "" {
				continue
			}
			if _, taken := names[key]; !taken {
				names[key] = tag
			}
		}
	}
	return names
})

// ParseLanguage accepts a BCP 47 tag ("de", "pt-BR") or a language name in
// English or in the language itself ("German", "Deutsch").
func ParseLanguage(value string) (language.Tag, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return language.Und, services.Wrap(services.ErrValidation, "command", "parse language", "empty language", nil)
	}
	if tag, err := language.Parse(value); err == nil && tag != language.Und {
		return tag, nil
	}
	if tag, ok := languageNames()[strings.ToLower(value)]; ok {
		return tag, nil
	}
	return language.Und, services.Wrap(services.ErrValidation, "command", "parse language", fmt.Sprintf("unknown language %q", value), nil)
}
