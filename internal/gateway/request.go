package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/rmitchellscott/pdfgateway/internal/config"
	"github.com/rmitchellscott/pdfgateway/internal/staging"
	"github.com/rmitchellscott/pdfgateway/internal/storage"
)

const (
	headerAPIKey    = "x-api-key"
	headerAPISecret = "x-api-secret"

	// readConcurrency bounds parallel reads from the staging backend.
	readConcurrency = 4
)

// Request is one inbound operation after its uploads have been staged.
type Request struct {
	ID     string
	Op     Operation
	Files  []staging.StagedFile
	Fields map[string]string
}

// Payload is a fully encoded outbound multipart request.
type Payload struct {
	Body        []byte
	ContentType string
	Header      http.Header
}

// Builder turns staged files and options into the RobotPDF multipart body.
type Builder struct {
	backend   storage.Backend
	apiKey    string
	apiSecret string
}

func NewBuilder(backend storage.Backend, cfg config.Upstream) *Builder {
	return &Builder{
		backend:   backend,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
	}
}

// Build reads every staged file into memory and encodes the request body.
// Part order follows the order of files.
func (b *Builder) Build(ctx context.Context, spec OperationSpec, files []staging.StagedFile, opts staging.Options) (*Payload, error) {
	contents, err := b.readAll(ctx, files)
	if err != nil {
		return nil, err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for i, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(spec.PartName), escapeQuotes(f.OriginalName)))
		h.Set("Content-Type", partType(spec, f, contents[i]))

		part, err := writer.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(contents[i]); err != nil {
			return nil, fmt.Errorf("failed to write form file: %w", err)
		}
	}

	for _, field := range spec.Fields {
		v := optionValue(opts, field)
		if v == "" {
			continue
		}
		if err := writer.WriteField(field, v); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", field, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	header := make(http.Header)
	header.Set(headerAPIKey, b.apiKey)
	header.Set(headerAPISecret, b.apiSecret)

	return &Payload{
		Body:        body.Bytes(),
		ContentType: writer.FormDataContentType(),
		Header:      header,
	}, nil
}

func (b *Builder) readAll(ctx context.Context, files []staging.StagedFile) ([][]byte, error) {
	contents := make([][]byte, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)

	for i, f := range files {
		g.Go(func() error {
			rc, err := b.backend.Get(gctx, f.Path)
			if err != nil {
				return fmt.Errorf("read staged file %s: %w", f.OriginalName, err)
			}
			defer rc.Close()

			data, err := io.ReadAll(rc)
			if err != nil {
				return fmt.Errorf("read staged file %s: %w", f.OriginalName, err)
			}
			contents[i] = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return contents, nil
}

func partType(spec OperationSpec, f staging.StagedFile, data []byte) string {
	mt := f.MimeType
	if spec.ForcePDFType && strings.HasSuffix(strings.ToLower(f.OriginalName), ".pdf") {
		return "application/pdf"
	}
	if mt == "" {
		mt = mimetype.Detect(data).String()
	}
	return mt
}

func optionValue(o staging.Options, field string) string {
	switch field {
	case "language":
		return o.Language
	case "pages":
		return o.Pages
	case "split_mode":
		return o.SplitMode
	case "page_size":
		return o.PageSize
	case "orientation":
		return o.Orientation
	}
	return ""
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
