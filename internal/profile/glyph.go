package profile

import (
	"hash/fnv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/domain"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/textnorm"
)

var glyphPalette = []string{
	"#1F77B4", "#FF7F0E", "#2CA02C", "#D62728", "#9467BD",
	"#8C564B", "#E377C2", "#7F7F7F", "#BCBD22", "#17BECF",
}

// Glyph - инициалы первого и последнего слова имени и цвет из палитры.
// Цвет детерминирован нормализованным именем.
func Glyph(displayName string) domain.PhotoGlyph {
	fields := strings.Fields(displayName)

	var initials strings.Builder
	if len(fields) > 0 {
		initials.WriteRune(firstLetter(fields[0]))
	}
	if len(fields) > 1 {
		initials.WriteRune(firstLetter(fields[len(fields)-1]))
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(textnorm.Normalize(displayName)))

	return domain.PhotoGlyph{
		Initials: initials.String(),
		Color:    glyphPalette[h.Sum32()%uint32(len(glyphPalette))],
	}
}

func firstLetter(word string) rune {
	r, _ := utf8.DecodeRuneInString(word)
	return unicode.ToUpper(r)
}
