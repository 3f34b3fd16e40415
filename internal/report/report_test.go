package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridoc-io/veridoc/internal/store"
)

func sampleProfile() Profile {
	return Profile{
		StudentName: "John Doe",
		RollNumber:  "CS-101",
		Entries: []Entry{
			{
				Label:      "Python Programming",
				Kind:       "CERTIFICATE",
				Resolution: "automatic",
				Confidence: 0.97,
				VerifiedAt: time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
			},
			{
				Label:      "Advanced Robotics",
				Kind:       "CERTIFICATE",
				Resolution: "manual review",
				Confidence: 0.74,
				VerifiedAt: time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
			},
		},
	}
}

func TestRender_ProducesPDF(t *testing.T) {
	data, err := Render(sampleProfile())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(data), "%PDF-"), "output must be a PDF")
	assert.Greater(t, len(data), 1000)
}

func TestRender_EmptyProfile(t *testing.T) {
	data, err := Render(Profile{StudentName: "Jane Doe", RollNumber: "EE-201"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
}

func TestGenerator_WriteTo(t *testing.T) {
	g := NewGenerator(DefaultOptions())
	require.NoError(t, g.Render(sampleProfile()))

	var buf bytes.Buffer
	require.NoError(t, g.WriteTo(&buf))
	assert.Positive(t, buf.Len())
}

func TestProfileFromSubmissions(t *testing.T) {
	subs := []store.Submission{
		{
			StudentName: "John Doe",
			RollNumber:  "CS-101",
			Kind:        "CERTIFICATE",
			Skill:       "Python",
			Overall:     0.97,
			Status:      store.StatusAutoApproved,
			CreatedAt:   time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		},
		{
			StudentName: "John Doe",
			RollNumber:  "CS-101",
			Kind:        "COLLEGE_ID",
			Overall:     0.81,
			Status:      store.StatusApproved,
			CreatedAt:   time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	profile := ProfileFromSubmissions("John Doe", "CS-101", subs)

	require.Len(t, profile.Entries, 2)
	assert.Equal(t, "Python", profile.Entries[0].Label)
	assert.Equal(t, "automatic", profile.Entries[0].Resolution)
	assert.Equal(t, "COLLEGE_ID", profile.Entries[1].Label, "kind backfills a missing skill label")
	assert.Equal(t, "manual review", profile.Entries[1].Resolution)
}

func TestProfileFromSubmissions_BackfillsName(t *testing.T) {
	subs := []store.Submission{{StudentName: "Jane Doe", Kind: "CERTIFICATE", Status: store.StatusAutoApproved}}
	profile := ProfileFromSubmissions("", "EE-201", subs)
	assert.Equal(t, "Jane Doe", profile.StudentName)
}
