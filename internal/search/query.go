package search

import (
	"fmt"
	"strings"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/domain"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/verify"
)

const Instructions = `You are a research assistant that looks up public professional profiles.
Use the web_search tool for every query below and rely only on what it returns.
Do not invent people, job titles, profile URLs or locations.
Report each result exactly as the tool returned it: title, URL and snippet.
If the tool finds nothing relevant, say that nothing was found.`

// BuildQueries - 2-3 варианта запроса: имя и организация в кавычках,
// ограничение на linkedin.com/in и региональные термины.
func BuildQueries(subject domain.SearchSubject, region verify.Region) []string {
	name := quote(subject.Name)
	org := quote(subject.Organization)
	const site = "site:linkedin.com/in"

	var queries []string
	if len(region.Cities) > 0 {
		queries = append(queries, fmt.Sprintf("%s %s %s %s", name, org, site, region.Cities[0]))
	}
	if region.Country != "" {
		queries = append(queries, fmt.Sprintf("%s %s %s %s", name, org, site, region.Country))
	}

	terms := append([]string{}, region.Cities...)
	if region.Country != "" {
		terms = append(terms, region.Country)
	}
	broad := fmt.Sprintf("%s %s %s", name, strings.TrimSpace(subject.Organization), site)
	if len(terms) > 0 {
		broad += " (" + strings.Join(terms, " OR ") + ")"
	}
	queries = append(queries, broad)

	return queries
}

func BuildInputs(queries []string) string {
	var sb strings.Builder
	sb.WriteString("Run the following web searches and list every LinkedIn profile they return:\n")
	for i, q := range queries {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, q)
	}
	return sb.String()
}

func quote(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
	return `"` + s + `"`
}
