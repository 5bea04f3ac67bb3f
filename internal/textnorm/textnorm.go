// Package textnorm нормализует имена для сравнения: без диакритики, в нижнем регистре.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize раскладывает строку (NFD), выкидывает combining marks, trim + lowercase.
// "Seán Ó Briain" -> "sean o briain".
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	// transformer не потокобезопасен, собираем новый на каждый вызов
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// NameLikelyMatches требует совпадения фамилии (последний токен цели)
// и хотя бы min(2, len(target)) общих токенов. Отчество и сокращения
// кандидата не мешают, однофамильцы отсекаются.
func NameLikelyMatches(candidateFullName, targetName string) bool {
	target := Tokens(targetName)
	if len(target) == 0 {
		return false
	}

	candidate := make(map[string]struct{})
	for _, tok := range Tokens(candidateFullName) {
		candidate[tok] = struct{}{}
	}

	last := target[len(target)-1]
	if _, ok := candidate[last]; !ok {
		return false
	}

	overlap := 0
	for _, tok := range target {
		if _, ok := candidate[tok]; ok {
			overlap++
		}
	}

	return overlap >= min(2, len(target))
}
