// Package profile превращает сырые hits в проверенных кандидатов.
// Ничего, кроме текста самих hits, в профиль не попадает.
package profile

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/domain"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/textnorm"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/verify"
)

const DefaultMaxProfiles = 10

var networkSuffix = regexp.MustCompile(`(?i)\s*\|\s*linkedin\s*$`)

// разделители "Имя - Должность" в заголовках профилей
var titleSeparators = []string{" - ", " – ", " — "}

type Builder struct {
	validator   *verify.Validator
	maxProfiles int
	newID       func() string
}

func New(validator *verify.Validator, maxProfiles int) *Builder {
	if validator == nil {
		validator = verify.New(verify.DefaultRegion(), verify.DefaultWeights())
	}
	if maxProfiles <= 0 {
		maxProfiles = DefaultMaxProfiles
	}
	return &Builder{
		validator:   validator,
		maxProfiles: maxProfiles,
		newID:       uuid.NewString,
	}
}

// Build отбирает hits, прошедшие все проверки, и сортирует кандидатов:
// сначала совпадение по городу, потом по стране, внутри - по скору.
func (b *Builder) Build(subject domain.SearchSubject, hits []domain.RawSearchHit) []domain.CandidateProfile {
	profiles := make([]domain.CandidateProfile, 0, len(hits))
	index := make(map[string]int)

	for _, hit := range hits {
		p, ok := b.fromHit(subject, hit)
		if !ok {
			continue
		}

		key := textnorm.Normalize(p.DisplayName) + "\x00" + strings.ToLower(p.ProfileURL)
		if i, dup := index[key]; dup {
			profiles[i].Evidence = append(profiles[i].Evidence, hit)
			continue
		}
		index[key] = len(profiles)
		profiles = append(profiles, p)
	}

	sort.SliceStable(profiles, func(i, j int) bool {
		li := b.validator.LevelOf(profiles[i].RegionLabel)
		lj := b.validator.LevelOf(profiles[j].RegionLabel)
		if li != lj {
			return li > lj
		}
		return profiles[i].ConfidenceScore > profiles[j].ConfidenceScore
	})

	if len(profiles) > b.maxProfiles {
		profiles = profiles[:b.maxProfiles]
	}
	return profiles
}

func (b *Builder) fromHit(subject domain.SearchSubject, hit domain.RawSearchHit) (domain.CandidateProfile, bool) {
	if !verify.IsProfileURL(hit.URL) {
		return domain.CandidateProfile{}, false
	}

	text := hit.Title + " " + hit.Snippet
	if !verify.MentionsOrganization(text, subject.Organization) {
		return domain.CandidateProfile{}, false
	}
	if !b.validator.MentionsRegion(text) {
		return domain.CandidateProfile{}, false
	}

	name := DisplayName(hit.Title)
	if name == "" {
		name = subject.Name
	}
	if !textnorm.NameLikelyMatches(name, subject.Name) {
		return domain.CandidateProfile{}, false
	}

	label := b.validator.DeriveRegionLabel(text)
	score := b.validator.ConfidenceScore(name, subject.Name, label)

	return domain.CandidateProfile{
		ID:                     b.newID(),
		DisplayName:            name,
		Organization:           subject.Organization,
		Position:               domain.UnknownPosition,
		ProfileURL:             hit.URL,
		PhotoGlyph:             Glyph(name),
		AnalysisNote:           analysisNote(subject, label, score),
		RegionLabel:            label,
		IsCurrentRole:          false,
		IsOrganizationVerified: true,
		ConfidenceScore:        score,
		Evidence:               []domain.RawSearchHit{hit},
	}, true
}

// DisplayName: "Jane Public - Acme Ltd | LinkedIn" -> "Jane Public".
func DisplayName(title string) string {
	name := networkSuffix.ReplaceAllString(strings.TrimSpace(title), "")
	for _, sep := range titleSeparators {
		if i := strings.Index(name, sep); i >= 0 {
			name = name[:i]
		}
	}
	return strings.TrimSpace(name)
}

func analysisNote(subject domain.SearchSubject, regionLabel string, score int) string {
	return fmt.Sprintf(
		"Public profile URL found by web search. Title or snippet mentions %s and %s. Name matches %q. Confidence %d/100.",
		subject.Organization, regionLabel, subject.Name, score,
	)
}
