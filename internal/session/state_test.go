package session

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/muhammadolammi/atsresume/internal/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdf(name string) File {
	return NewMemoryFile(name, "application/pdf", []byte("%PDF-1.4 "+name))
}

func TestNew_InitialState(t *testing.T) {
	s := New()

	assert.Equal(t, prompts.ModeRecruiter, s.Mode())
	assert.Empty(t, s.Resumes())
	_, ok := s.Selected()
	assert.False(t, ok)
	assert.Empty(t, s.JobDescription())
}

func TestAddResumes_KeysMatchNames(t *testing.T) {
	s := New()
	s.AddResumes(pdf("a.pdf"), pdf("b.pdf"))
	s.AddResumes(pdf("c.pdf"))

	assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf"}, s.Names())
	for _, r := range s.Resumes() {
		assert.Equal(t, r.Name, r.File.Name())
		assert.Empty(t, r.Responses)
	}
}

func TestAddResumes_LaterOverwritesEarlier(t *testing.T) {
	s := New()
	first := pdf("a.pdf")
	s.AddResumes(first)
	require.NoError(t, s.AddResponse("a.pdf", "Percentage Match", "70%"))

	second := pdf("a.pdf")
	s.AddResumes(second)

	r, err := s.Resume("a.pdf")
	require.NoError(t, err)
	assert.Same(t, second, r.File)
	assert.Empty(t, r.Responses)
	assert.Len(t, s.Names(), 1)
}

func TestAddResumes_LastWinsWithinBatch(t *testing.T) {
	s := New()
	first, last := pdf("dup.pdf"), pdf("dup.pdf")
	s.AddResumes(first, nil, last)

	r, err := s.Resume("dup.pdf")
	require.NoError(t, err)
	assert.Same(t, last, r.File)
	assert.Equal(t, []string{"dup.pdf"}, s.Names())
}

func TestSetSelectedResume(t *testing.T) {
	s := New()
	s.AddResumes(pdf("a.pdf"))

	require.NoError(t, s.SetSelectedResume("a.pdf"))
	got, ok := s.Selected()
	assert.True(t, ok)
	assert.Equal(t, "a.pdf", got)

	err := s.SetSelectedResume("missing.pdf")
	assert.ErrorIs(t, err, ErrResumeNotFound)
	got, _ = s.Selected()
	assert.Equal(t, "a.pdf", got, "failed selection must not change the current one")

	s.ClearSelection()
	_, ok = s.Selected()
	assert.False(t, ok)
}

func TestSelected_StaleAfterReset(t *testing.T) {
	s := New()
	s.AddResumes(pdf("a.pdf"))
	require.NoError(t, s.SetSelectedResume("a.pdf"))

	s.Reset()

	_, ok := s.Selected()
	assert.False(t, ok)
	assert.Empty(t, s.Names())
	assert.Equal(t, prompts.DefaultMode, s.Mode())
}

func TestAddResponse_NonInterference(t *testing.T) {
	s := New()
	s.AddResumes(pdf("a.pdf"), pdf("b.pdf"))
	require.NoError(t, s.AddResponse("a.pdf", "Tell Me About the Resume", "strong backend profile"))
	require.NoError(t, s.AddResponse("b.pdf", "Percentage Match", "40%"))

	require.NoError(t, s.AddResponse("a.pdf", "Percentage Match", "85%"))

	a, err := s.Resume("a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "85%", a.Responses["Percentage Match"])
	assert.Equal(t, "strong backend profile", a.Responses["Tell Me About the Resume"])

	b, err := s.Resume("b.pdf")
	require.NoError(t, err)
	assert.Equal(t, map[prompts.Action]string{"Percentage Match": "40%"}, b.Responses)
}

func TestAddResponse_Errors(t *testing.T) {
	s := New()
	s.AddResumes(pdf("a.pdf"))

	err := s.AddResponse("missing.pdf", "Percentage Match", "85%")
	assert.ErrorIs(t, err, ErrResumeNotFound)

	err = s.AddResponse("a.pdf", "Rate My Haircut", "10/10")
	assert.ErrorIs(t, err, ErrUnknownAction)

	r, _ := s.Resume("a.pdf")
	assert.Empty(t, r.Responses)
}

func TestRecordFailure_KeepsResponses(t *testing.T) {
	s := New()
	s.AddResumes(pdf("a.pdf"))
	require.NoError(t, s.AddResponse("a.pdf", "Percentage Match", "85%"))

	require.NoError(t, s.RecordFailure("a.pdf", "Percentage Match", "service timeout"))

	r, _ := s.Resume("a.pdf")
	assert.Equal(t, "85%", r.Responses["Percentage Match"])
	assert.Equal(t, "service timeout", r.Failures["Percentage Match"])

	require.NoError(t, s.AddResponse("a.pdf", "Percentage Match", "90%"))
	r, _ = s.Resume("a.pdf")
	assert.NotContains(t, r.Failures, prompts.Action("Percentage Match"))

	assert.ErrorIs(t, s.RecordFailure("nope.pdf", "Percentage Match", "x"), ErrResumeNotFound)
}

func TestSnapshotsAreCopies(t *testing.T) {
	s := New()
	s.AddResumes(pdf("a.pdf"))
	r, _ := s.Resume("a.pdf")
	r.Responses["Percentage Match"] = "tampered"

	again, _ := s.Resume("a.pdf")
	assert.Empty(t, again.Responses)
}

func TestScenario_RecruiterSession(t *testing.T) {
	s := New()
	require.Equal(t, prompts.ModeRecruiter, s.Mode())

	s.AddResumes(pdf("fileA.pdf"), pdf("fileB.pdf"))
	require.Len(t, s.Resumes(), 2)
	for _, r := range s.Resumes() {
		assert.Empty(t, r.Responses)
	}

	require.NoError(t, s.SetSelectedResume("fileA.pdf"))
	sel, _ := s.Selected()
	assert.Equal(t, "fileA.pdf", sel)

	require.NoError(t, s.AddResponse("fileA.pdf", "Percentage Match", "85%"))
	a, _ := s.Resume("fileA.pdf")
	assert.Equal(t, "85%", a.Responses["Percentage Match"])
	b, _ := s.Resume("fileB.pdf")
	assert.Empty(t, b.Responses)
}

func TestScenario_ModeSwitchKeepsResponses(t *testing.T) {
	s := New()
	s.AddResumes(pdf("fileA.pdf"))
	require.NoError(t, s.AddResponse("fileA.pdf", "Percentage Match", "85%"))

	require.NoError(t, s.SetUserMode(prompts.ModeStudent))

	assert.NotContains(t, prompts.Actions(s.Mode()), prompts.Action("Percentage Match"))
	a, _ := s.Resume("fileA.pdf")
	assert.Equal(t, "85%", a.Responses["Percentage Match"])
	assert.Equal(t, []string{"fileA.pdf"}, s.ResumesWithResponse("Percentage Match"))
}

func TestSetUserMode_Invalid(t *testing.T) {
	s := New()
	err := s.SetUserMode("Admin")
	assert.ErrorIs(t, err, prompts.ErrInvalidMode)
	assert.Equal(t, prompts.ModeRecruiter, s.Mode())
}

func TestResumesWithResponse(t *testing.T) {
	s := New()
	s.AddResumes(pdf("c.pdf"), pdf("a.pdf"), pdf("b.pdf"))
	require.NoError(t, s.AddResponse("c.pdf", "Percentage Match", "1"))
	require.NoError(t, s.AddResponse("a.pdf", "Percentage Match", "2"))

	assert.Equal(t, []string{"a.pdf", "c.pdf"}, s.ResumesWithResponse("Percentage Match"))
	assert.Empty(t, s.ResumesWithResponse("Generate Cold Email"))
}

func TestSetPreview(t *testing.T) {
	s := New()
	s.AddResumes(pdf("a.pdf"))
	require.NoError(t, s.SetPreview("a.pdf", "/files/a.pdf"))
	r, _ := s.Resume("a.pdf")
	assert.Equal(t, "/files/a.pdf", r.Preview)

	assert.ErrorIs(t, s.SetPreview("b.pdf", "x"), ErrResumeNotFound)
}

func TestMemoryFile_Open(t *testing.T) {
	f := NewMemoryFile("a.pdf", "application/pdf", []byte("%PDF-1.7"))
	rc, err := f.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))
	assert.Equal(t, int64(8), f.Size())
}

func TestConcurrentMutations(t *testing.T) {
	s := New()
	s.AddResumes(pdf("a.pdf"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.AddResponse("a.pdf", "Percentage Match", "85%")
		}()
		go func() {
			defer wg.Done()
			_ = s.Resumes()
			_, _ = s.Selected()
		}()
	}
	wg.Wait()

	r, _ := s.Resume("a.pdf")
	assert.Equal(t, "85%", r.Responses["Percentage Match"])
}

func TestAddResponseFor_StaleHandle(t *testing.T) {
	s := New()
	original := pdf("a.pdf")
	s.AddResumes(original)

	require.NoError(t, s.AddResponseFor(original, "Percentage Match", "85%"))

	s.AddResumes(pdf("a.pdf"))
	err := s.AddResponseFor(original, "Tell Me About the Resume", "late answer")
	assert.ErrorIs(t, err, ErrStaleResume)
	assert.ErrorIs(t, s.RecordFailureFor(original, "Percentage Match", "late failure"), ErrStaleResume)

	r, _ := s.Resume("a.pdf")
	assert.Empty(t, r.Responses)
	assert.Empty(t, r.Failures)

	assert.ErrorIs(t, s.AddResponseFor(pdf("b.pdf"), "Percentage Match", "x"), ErrResumeNotFound)
}
