package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	pdflib "github.com/ledongthuc/pdf"
)

const (
	FormatPDF    = "pdf"
	MediaTypePDF = "application/pdf"
)

// pdfWaitDelay bounds how long a killed renderer's children may hold
// stdout open after the context is done.
var pdfWaitDelay = 500 * time.Millisecond

// ErrRendererUnavailable is returned when the external PDF renderer can't
// be found.
var ErrRendererUnavailable = errors.New("pdf renderer unavailable")

// PDF converts HTML to PDF with wkhtmltopdf, reading the page from stdin
// and the PDF from stdout. The output is opened with a PDF reader before
// it's returned.
type PDF struct {
	Binary string
	Args   []string

	html *HTML
	run  func(ctx context.Context, binary string, args []string, stdin []byte) ([]byte, error)
}

func NewPDF(binary string) *PDF {
	if binary == "" {
		binary = "wkhtmltopdf"
	}
	return &PDF{
		Binary: binary,
		Args:   []string{"--quiet", "--encoding", "utf-8"},
		html:   NewHTML(),
		run:    runCommand,
	}
}

func (p *PDF) Name() string   { return "wkhtmltopdf" }
func (p *PDF) Format() string { return FormatPDF }

func (p *PDF) Generate(ctx context.Context, content []byte) (Artifact, error) {
	page, err := p.html.document(content)
	if err != nil {
		return Artifact{}, err
	}

	args := append(append([]string{}, p.Args...), "-", "-")
	out, err := p.run(ctx, p.Binary, args, page)
	if err != nil {
		return Artifact{}, err
	}

	pages, err := countPages(out)
	if err != nil {
		return Artifact{}, fmt.Errorf("verify pdf output: %w", err)
	}
	return Artifact{
		Format:    FormatPDF,
		MediaType: MediaTypePDF,
		Generator: p.Name(),
		Data:      out,
		Meta:      map[string]string{"pages": strconv.Itoa(pages)},
	}, nil
}

func runCommand(ctx context.Context, binary string, args []string, stdin []byte) ([]byte, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRendererUnavailable, err)
	}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.WaitDelay = pdfWaitDelay
	cmd.Stdin = bytes.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		// A kill from a cancelled context reads as "signal: killed"; report
		// the cancellation instead so callers can tell it apart.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", binary, ctxErr)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", binary, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", binary, err)
	}
	return out, nil
}

func countPages(data []byte) (n int, err error) {
	// The reader panics on some malformed xref tables.
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	r, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	n = r.NumPage()
	if n < 1 {
		return 0, errors.New("pdf has no pages")
	}
	return n, nil
}
