// Package verify содержит предикаты, по которым результат поиска
// признается профилем нужного человека.
package verify

import (
	"regexp"
	"strings"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/textnorm"
)

// схема + опциональный локальный поддомен (www, ie, uk...) + /in/<handle>
var profileURLPattern = regexp.MustCompile(`(?i)^https?://(?:[a-z]{2,3}\.)?linkedin\.com/in/[^/?#\s]+/?(?:[?#].*)?$`)

// Region - целевой регион работы. Города проверяются раньше страны.
type Region struct {
	Country string
	Cities  []string
}

func DefaultRegion() Region {
	return Region{Country: "Ireland", Cities: []string{"Dublin"}}
}

type RegionLevel int

const (
	RegionNone RegionLevel = iota
	RegionCountry
	RegionCity
)

// Weights - продуктовые веса скоринга, без выведенного обоснования.
type Weights struct {
	Name    int
	City    int
	Country int
}

func DefaultWeights() Weights {
	return Weights{Name: 60, City: 25, Country: 15}
}

const MaxScore = 100

type Validator struct {
	region  Region
	weights Weights
}

func New(region Region, weights Weights) *Validator {
	if region.Country == "" && len(region.Cities) == 0 {
		region = DefaultRegion()
	}
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Validator{region: region, weights: weights}
}

func (v *Validator) Region() Region {
	return v.region
}

func IsProfileURL(url string) bool {
	return profileURLPattern.MatchString(strings.TrimSpace(url))
}

func MentionsOrganization(text, organization string) bool {
	organization = strings.TrimSpace(organization)
	if organization == "" {
		return false
	}
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(organization))
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

func (v *Validator) MentionsRegion(text string) bool {
	_, level := v.matchRegion(text)
	return level != RegionNone
}

// DeriveRegionLabel: "City, Country" если есть город, "Country" если только страна, иначе "".
func (v *Validator) DeriveRegionLabel(text string) string {
	label, _ := v.matchRegion(text)
	return label
}

func (v *Validator) LevelOf(label string) RegionLevel {
	if label == "" {
		return RegionNone
	}
	if strings.EqualFold(label, v.region.Country) {
		return RegionCountry
	}
	return RegionCity
}

func (v *Validator) ConfidenceScore(candidateName, targetName, regionLabel string) int {
	score := 0
	if textnorm.NameLikelyMatches(candidateName, targetName) {
		score += v.weights.Name
	}
	switch v.LevelOf(regionLabel) {
	case RegionCity:
		score += v.weights.City
	case RegionCountry:
		score += v.weights.Country
	}
	if score > MaxScore {
		score = MaxScore
	}
	if score < 0 {
		score = 0
	}
	return score
}

func (v *Validator) matchRegion(text string) (string, RegionLevel) {
	haystack := textnorm.Normalize(text)
	if haystack == "" {
		return "", RegionNone
	}

	for _, city := range v.region.Cities {
		c := textnorm.Normalize(city)
		if c != "" && strings.Contains(haystack, c) {
			if v.region.Country == "" {
				return city, RegionCity
			}
			return city + ", " + v.region.Country, RegionCity
		}
	}

	if country := textnorm.Normalize(v.region.Country); country != "" && strings.Contains(haystack, country) {
		return v.region.Country, RegionCountry
	}

	return "", RegionNone
}
