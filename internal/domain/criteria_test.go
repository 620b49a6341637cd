package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeClampsCount(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 10},
		{-3, 10},
		{1, 5},
		{4, 5},
		{5, 5},
		{25, 25},
		{50, 50},
		{51, 50},
		{500, 50},
	}
	for _, tt := range tests {
		got := Criteria{ScrapeType: SearchHackathons, Count: tt.in}.Normalize()
		assert.Equal(t, tt.want, got.Count, "count %d", tt.in)
	}
}

func TestNormalizeDefaultsProvider(t *testing.T) {
	got := Criteria{ScrapeType: SearchCourses}.Normalize()
	assert.Equal(t, "all", got.Provider)

	got = Criteria{ScrapeType: SearchCourses, Provider: "ibm"}.Normalize()
	assert.Equal(t, "ibm", got.Provider)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Criteria{ScrapeType: SearchHackathons}.Validate())
	assert.NoError(t, Criteria{ScrapeType: SearchHackathons, Provider: "mlh"}.Validate())
	assert.NoError(t, Criteria{ScrapeType: SearchCertificates, Provider: "all"}.Validate())

	assert.Error(t, Criteria{ScrapeType: "podcasts"}.Validate())
	assert.Error(t, Criteria{ScrapeType: SearchCertificates, Provider: "mlh"}.Validate())
	assert.Error(t, Criteria{ScrapeType: SearchCourses, Provider: "devpost"}.Validate())
}

func TestProvidersRosterSelection(t *testing.T) {
	all := Criteria{ScrapeType: SearchHackathons, Provider: "all"}.Providers()
	assert.ElementsMatch(t, []string{"mlh", "devpost", "oracle", "ibm", "microsoft"}, all)

	certs := Criteria{ScrapeType: SearchCertificates}.Providers()
	assert.ElementsMatch(t, []string{"oracle", "ibm", "microsoft"}, certs)

	single := Criteria{ScrapeType: SearchCourses, Provider: "ibm"}.Providers()
	assert.Equal(t, []string{"ibm"}, single)
}

func TestProvidersReturnsCopy(t *testing.T) {
	a := Criteria{ScrapeType: SearchCourses}.Providers()
	a[0] = "mutated"
	b := Criteria{ScrapeType: SearchCourses}.Providers()
	assert.NotEqual(t, "mutated", b[0])
}

func TestSearchTypeCategory(t *testing.T) {
	assert.Equal(t, CategoryHackathon, SearchHackathons.Category())
	assert.Equal(t, CategoryCertification, SearchCertificates.Category())
	assert.Equal(t, CategoryCourse, SearchCourses.Category())
	assert.Equal(t, CategoryUnknown, SearchType("podcasts").Category())
}
