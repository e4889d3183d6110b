package server

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/muhammadolammi/atsresume/internal/prompts"
	"github.com/muhammadolammi/atsresume/internal/session"
)

type resumeView struct {
	Name      string                    `json:"name"`
	MediaType string                    `json:"media_type"`
	Size      int64                     `json:"size"`
	Preview   string                    `json:"preview,omitempty"`
	Responses map[prompts.Action]string `json:"responses"`
	Failures  map[prompts.Action]string `json:"failures,omitempty"`
}

type sessionView struct {
	ID             uuid.UUID        `json:"id"`
	Mode           prompts.Mode     `json:"mode"`
	Actions        []prompts.Action `json:"actions"`
	Selected       *string          `json:"selected"`
	JobDescription string           `json:"job_description"`
	Resumes        []resumeView     `json:"resumes"`
}

func newResumeView(r session.Resume) resumeView {
	return resumeView{
		Name:      r.Name,
		MediaType: r.File.MediaType(),
		Size:      r.File.Size(),
		Preview:   r.Preview,
		Responses: r.Responses,
		Failures:  r.Failures,
	}
}

func newSessionView(s *session.State) sessionView {
	mode := s.Mode()
	v := sessionView{
		ID:             s.ID(),
		Mode:           mode,
		Actions:        prompts.Actions(mode),
		JobDescription: s.JobDescription(),
		Resumes:        []resumeView{},
	}
	if name, ok := s.Selected(); ok {
		v.Selected = &name
	}
	for _, r := range s.Resumes() {
		v.Resumes = append(v.Resumes, newResumeView(r))
	}
	return v
}

// previewPath is the URL a client loads to render the stored file.
func previewPath(id uuid.UUID, name string) string {
	return fmt.Sprintf("/api/sessions/%s/resumes/%s/file", id, url.PathEscape(name))
}
