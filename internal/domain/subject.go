package domain

import (
	"strings"
)

const MaxNameLength = 200

// SearchSubject - кого ищем. SubjectKey непрозрачный (обычно id контакта).
type SearchSubject struct {
	Name         string
	Organization string
	SubjectKey   string
}

func (s *SearchSubject) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(s.Organization) == "" {
		return ErrEmptyOrganization
	}
	if strings.TrimSpace(s.SubjectKey) == "" {
		return ErrEmptySubjectKey
	}
	if len(s.Name) > MaxNameLength || len(s.Organization) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func (s *SearchSubject) Sanitize() {
	s.Name = strings.Join(strings.Fields(s.Name), " ")
	s.Organization = strings.Join(strings.Fields(s.Organization), " ")
	s.SubjectKey = strings.TrimSpace(s.SubjectKey)
}
