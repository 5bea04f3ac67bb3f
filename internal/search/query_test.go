package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/domain"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/verify"
)

func TestBuildQueries(t *testing.T) {
	subject := domain.SearchSubject{Name: `Jane "JP" Public`, Organization: "Acme Ltd", SubjectKey: "c1"}

	queries := BuildQueries(subject, verify.DefaultRegion())

	assert.Len(t, queries, 3)
	for _, q := range queries {
		assert.Contains(t, q, `"Jane JP Public"`)
		assert.Contains(t, q, "site:linkedin.com/in")
		assert.Contains(t, q, "Acme Ltd")
	}
	assert.Contains(t, queries[0], "Dublin")
	assert.Contains(t, queries[1], "Ireland")
	assert.Contains(t, queries[2], "(Dublin OR Ireland)")
}

func TestBuildQueries_CountryOnly(t *testing.T) {
	subject := domain.SearchSubject{Name: "Jane Public", Organization: "Acme", SubjectKey: "c1"}

	queries := BuildQueries(subject, verify.Region{Country: "Ireland"})

	assert.Len(t, queries, 2)
	assert.Contains(t, queries[0], "Ireland")
}

func TestBuildInputs(t *testing.T) {
	inputs := BuildInputs([]string{"q one", "q two"})

	assert.True(t, strings.HasPrefix(inputs, "Run the following web searches"))
	assert.Contains(t, inputs, "1. q one\n")
	assert.Contains(t, inputs, "2. q two\n")
}

func TestInstructions_ForbidFabrication(t *testing.T) {
	assert.Contains(t, Instructions, "web_search")
	assert.Contains(t, Instructions, "Do not invent")
}
