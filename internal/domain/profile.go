package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

const UnknownPosition = "Unknown Position"

// RawSearchHit - один результат web_search, ровно как его вернул провайдер.
type RawSearchHit struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

type PhotoGlyph struct {
	Initials string `json:"initials"`
	Color    string `json:"color"`
}

// CandidateProfile - проверенный кандидат. Evidence всегда непустой
// и содержит только хиты из того же поиска.
type CandidateProfile struct {
	ID                     string         `json:"id"`
	DisplayName            string         `json:"displayName"`
	Organization           string         `json:"organization"`
	Position               string         `json:"position"`
	ProfileURL             string         `json:"profileUrl"`
	PhotoGlyph             PhotoGlyph     `json:"photoGlyph"`
	AnalysisNote           string         `json:"analysisNote"`
	RegionLabel            string         `json:"regionLabel"`
	IsCurrentRole          bool           `json:"isCurrentRole"`
	IsOrganizationVerified bool           `json:"isOrganizationVerified"`
	ConfidenceScore        int            `json:"confidenceScore"`
	Evidence               []RawSearchHit `json:"evidence"`
}

type SearchResponse struct {
	Profiles []CandidateProfile `json:"profiles"`
	Cached   bool               `json:"cached"`
}

// SearchRecord - строка истории поиска, одна на каждого сохраненного кандидата.
type SearchRecord struct {
	SearchID             int64
	SubjectKey           string
	SubjectName          string
	Organization         string
	SerializedCandidate  []byte
	ConfidenceScore      int
	RegionLabel          string
	OrganizationVerified bool
	CreatedAt            time.Time
}

// NewSearchRecord сериализует кандидата целиком, вместе с evidence.
func NewSearchRecord(subject SearchSubject, p CandidateProfile) (SearchRecord, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return SearchRecord{}, fmt.Errorf("marshal candidate: %w", err)
	}
	return SearchRecord{
		SubjectKey:           subject.SubjectKey,
		SubjectName:          subject.Name,
		Organization:         subject.Organization,
		SerializedCandidate:  data,
		ConfidenceScore:      p.ConfidenceScore,
		RegionLabel:          p.RegionLabel,
		OrganizationVerified: p.IsOrganizationVerified,
	}, nil
}

// Candidate разбирает сохраненного кандидата обратно.
func (r SearchRecord) Candidate() (CandidateProfile, error) {
	var p CandidateProfile
	if err := json.Unmarshal(r.SerializedCandidate, &p); err != nil {
		return CandidateProfile{}, fmt.Errorf("unmarshal candidate: %w", err)
	}
	return p, nil
}
