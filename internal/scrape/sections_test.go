package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSections(t *testing.T) {
	text := `Acme builds tools for teams.

About the job
We are hiring a backend engineer.

Responsibilities:
Ship features.
Review code.

What we offer
Remote work.`

	got := SplitSections(text)
	require.Len(t, got, 4)

	assert.Equal(t, "", got[0].Heading)
	assert.Equal(t, "Acme builds tools for teams.", got[0].Body)

	assert.Equal(t, "About the job", got[1].Heading)
	assert.Equal(t, "We are hiring a backend engineer.", got[1].Body)

	assert.Equal(t, "Responsibilities", got[2].Heading)
	assert.Equal(t, "Ship features.\nReview code.", got[2].Body)

	assert.Equal(t, "What we offer", got[3].Heading)
	assert.Equal(t, "Remote work.", got[3].Body)
}

func TestSplitSections_NoHeadings(t *testing.T) {
	got := SplitSections("just a short post about hiring")
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0].Heading)
	assert.Equal(t, "just a short post about hiring", got[0].Body)
}

func TestSplitSections_Empty(t *testing.T) {
	assert.Empty(t, SplitSections(""))
}
