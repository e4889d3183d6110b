package report

import (
	"testing"
	"time"

	"github.com/muhammadolammi/atsresume/internal/prompts"
	"github.com/muhammadolammi/atsresume/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var generated = time.Date(2026, 3, 4, 9, 8, 7, 0, time.UTC)

func sampleResume() session.Resume {
	return session.Resume{
		Name: "fileA.pdf",
		Responses: map[prompts.Action]string{
			"Generate Cold Email": "Dear hiring manager",
			"Percentage Match":    "85%",
		},
		Failures: map[prompts.Action]string{
			"Tell Me About the Resume": "analysis failed: deadline exceeded",
		},
	}
}

func TestSingle(t *testing.T) {
	rep, err := Single(sampleResume(), "Percentage Match", generated)
	require.NoError(t, err)

	assert.Equal(t, "ATS_Analysis_20260304_090807", rep.ID)
	assert.Equal(t, "Percentage Match", rep.Title)
	assert.Equal(t, []Section{{Action: "Percentage Match", Text: "85%"}}, rep.Sections)
	assert.Equal(t, "ATS_Analysis_Percentage_Match_20260304_090807.md", rep.Filename())
}

func TestSingle_Failure(t *testing.T) {
	rep, err := Single(sampleResume(), "Tell Me About the Resume", generated)
	require.NoError(t, err)
	require.Len(t, rep.Sections, 1)
	assert.True(t, rep.Sections[0].Failed)
	assert.Equal(t, "analysis failed: deadline exceeded", rep.Sections[0].Text)
}

func TestSingle_Errors(t *testing.T) {
	_, err := Single(sampleResume(), "About the Resume", generated)
	assert.ErrorIs(t, err, ErrNoAnalysis)

	_, err = Single(sampleResume(), "Write My Cover Letter", generated)
	assert.ErrorIs(t, err, session.ErrUnknownAction)
}

func TestComplete_CatalogOrder(t *testing.T) {
	rep, err := Complete(sampleResume(), generated)
	require.NoError(t, err)

	var actions []prompts.Action
	for _, s := range rep.Sections {
		actions = append(actions, s.Action)
	}
	assert.Equal(t, []prompts.Action{"Percentage Match", "Tell Me About the Resume", "Generate Cold Email"}, actions)
	assert.Equal(t, "ATS_Complete_Analysis_20260304_090807", rep.ID)
	assert.Equal(t, "ATS_Complete_Analysis_Complete_Analysis_20260304_090807.md", rep.Filename())
}

func TestComplete_NothingRecorded(t *testing.T) {
	_, err := Complete(session.Resume{Name: "empty.pdf"}, generated)
	assert.ErrorIs(t, err, ErrNoAnalysis)
}

func TestMarkdown(t *testing.T) {
	rep, err := Complete(sampleResume(), generated)
	require.NoError(t, err)

	data, err := rep.Markdown()
	require.NoError(t, err)
	md := string(data)

	assert.Contains(t, md, "# ATS Resume Expert - Complete Analysis")
	assert.Contains(t, md, "- Resume: fileA.pdf")
	assert.Contains(t, md, "- Generated: March 4, 2026 09:08 UTC")
	assert.Contains(t, md, "## Percentage Match\n\n85%")
	assert.Contains(t, md, "## Tell Me About the Resume (failed)\n\n> analysis failed: deadline exceeded")
}

func TestSafeTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Percentage Match", "Percentage_Match"},
		{"  How Can I Improve My Skills?  ", "How_Can_I_Improve_My_Skills"},
		{"Percentage Match Resume vs Job Description", "Percentage_Match_Resume_vs_Job"},
		{"a - b", "a_b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeTitle(tt.in), tt.in)
	}
}
