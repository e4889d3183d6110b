// Package intake decides which uploaded files may enter a session. Only PDF
// résumés are admitted and a batch may hold at most Policy.MaxFiles files.
package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/muhammadolammi/atsresume/internal/metrics"
	"github.com/muhammadolammi/atsresume/internal/session"
)

const pdfMediaType = "application/pdf"

var (
	ErrEmptyBatch   = errors.New("no files in batch")
	ErrTooManyFiles = errors.New("too many files in batch")
)

// Reason says why a single file was refused.
type Reason string

const (
	ReasonMissingName Reason = "missing_name"
	ReasonNotPDF      Reason = "not_pdf"
	ReasonUnreadable  Reason = "unreadable"
	ReasonMalformed   Reason = "malformed_pdf"
	ReasonNoPages     Reason = "no_pages"
	ReasonNotFound    Reason = "not_found"
)

type Rejection struct {
	Name   string `json:"name"`
	Reason Reason `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// Batch is one drop of files. Rejected carries files a source already
// refused, e.g. object keys that do not exist; they count towards the cap.
type Batch struct {
	Source   string
	Files    []session.File
	Rejected []Rejection
}

func (b Batch) size() int {
	return len(b.Files) + len(b.Rejected)
}

type Result struct {
	Accepted []string
	Rejected []Rejection
}

type Policy struct {
	MaxFiles int
	// VerifyStructure opens each PDF and requires at least one page.
	VerifyStructure bool
}

var DefaultPolicy = Policy{MaxFiles: 10, VerifyStructure: true}

type Intake struct {
	policy Policy
	logger *slog.Logger
}

func New(policy Policy, logger *slog.Logger) *Intake {
	if policy.MaxFiles <= 0 {
		policy.MaxFiles = DefaultPolicy.MaxFiles
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Intake{policy: policy, logger: logger}
}

func (in *Intake) Policy() Policy {
	return in.policy
}

// Admit screens the batch and adds the accepted files to state. A batch over
// the cap is refused as a whole and nothing is added.
func (in *Intake) Admit(ctx context.Context, state *session.State, batch Batch) (Result, error) {
	if batch.size() == 0 {
		return Result{}, ErrEmptyBatch
	}
	if batch.size() > in.policy.MaxFiles {
		metrics.ResumesRejected.WithLabelValues("too_many_files").Add(float64(batch.size()))
		return Result{}, fmt.Errorf("%w: got %d, limit is %d", ErrTooManyFiles, batch.size(), in.policy.MaxFiles)
	}

	result := Result{Rejected: append([]Rejection{}, batch.Rejected...)}
	var accepted []session.File
	for _, f := range batch.Files {
		if rej, ok := in.check(ctx, f); !ok {
			result.Rejected = append(result.Rejected, rej)
			continue
		}
		accepted = append(accepted, f)
		result.Accepted = append(result.Accepted, f.Name())
	}

	state.AddResumes(accepted...)

	for _, rej := range result.Rejected {
		metrics.ResumesRejected.WithLabelValues(string(rej.Reason)).Inc()
		in.logger.Info("resume rejected",
			"session_id", state.ID(), "file", rej.Name, "reason", rej.Reason, "detail", rej.Detail)
	}
	metrics.ResumesAccepted.WithLabelValues(batch.Source).Add(float64(len(accepted)))
	in.logger.Info("resumes admitted",
		"session_id", state.ID(), "source", batch.Source, "accepted", len(accepted), "rejected", len(result.Rejected))
	return result, nil
}

func (in *Intake) check(ctx context.Context, f session.File) (Rejection, bool) {
	if f == nil || strings.TrimSpace(f.Name()) == "" {
		return Rejection{Reason: ReasonMissingName}, false
	}
	name := f.Name()
	if !declaredPDF(name, f.MediaType()) {
		return Rejection{Name: name, Reason: ReasonNotPDF, Detail: fmt.Sprintf("media type %q", f.MediaType())}, false
	}

	data, err := readAll(ctx, f)
	if err != nil {
		return Rejection{Name: name, Reason: ReasonUnreadable, Detail: err.Error()}, false
	}
	if sniffed := http.DetectContentType(data); sniffed != pdfMediaType {
		return Rejection{Name: name, Reason: ReasonNotPDF, Detail: fmt.Sprintf("content looks like %q", sniffed)}, false
	}

	if in.policy.VerifyStructure {
		pages, err := countPages(data)
		if err != nil {
			return Rejection{Name: name, Reason: ReasonMalformed, Detail: err.Error()}, false
		}
		if pages == 0 {
			return Rejection{Name: name, Reason: ReasonNoPages}, false
		}
	}
	return Rejection{}, true
}

// declaredPDF accepts a file whose media type or extension says PDF.
func declaredPDF(name, mediaType string) bool {
	if mt, _, err := mime.ParseMediaType(mediaType); err == nil && mt == pdfMediaType {
		return true
	}
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

func readAll(ctx context.Context, f session.File) ([]byte, error) {
	rc, err := f.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// countPages parses the document's cross-reference table and page tree. No
// page content is decoded.
func countPages(data []byte) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to read pdf: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("failed to read pdf: %w", err)
	}
	return reader.NumPage(), nil
}
