// Package gateway forwards staged uploads to RobotPDF and turns whatever comes
// back into one reply shape.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/rmitchellscott/pdfgateway/internal/config"
	"github.com/rmitchellscott/pdfgateway/internal/logging"
	"github.com/rmitchellscott/pdfgateway/internal/staging"
	"github.com/rmitchellscott/pdfgateway/internal/storage"
)

// Reply is what the HTTP layer writes back: a status and a JSON body.
type Reply struct {
	Status int
	Body   any
}

// Gateway runs the per-request pipeline shared by every operation.
type Gateway struct {
	backend    storage.Backend
	builder    *Builder
	client     *Client
	normalizer *Normalizer
	log        zerolog.Logger

	httpClient *http.Client
	now        func() time.Time
}

type Option func(*Gateway)

// WithHTTPClient replaces the outbound HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.httpClient = c }
}

// WithClock replaces the clock used for generated file names.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(g *Gateway) { g.log = l }
}

func New(cfg config.Upstream, backend storage.Backend, opts ...Option) *Gateway {
	g := &Gateway{
		backend: backend,
		log:     logging.Default(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	g.builder = NewBuilder(backend, cfg)
	g.client = NewClient(cfg, g.httpClient)
	g.normalizer = NewNormalizer(g.now)
	return g
}

// Handle runs req to completion. Staged files are removed before it returns
// whatever the outcome. Cancellation of ctx is ignored from here on.
func (g *Gateway) Handle(ctx context.Context, req Request) Reply {
	ctx = context.WithoutCancel(ctx)
	log := g.log.With().Str("request_id", req.ID).Str("operation", string(req.Op)).Logger()

	cleanup := NewCleanup(g.backend, req.Files, log)
	defer cleanup.Run(ctx)

	spec, ok := Lookup(req.Op)
	if !ok {
		return Reply{Status: http.StatusNotFound, Body: FlagError{Error: "Unknown operation"}}
	}

	res, err := g.process(ctx, spec, req, log)
	if err != nil {
		report := Classify(spec, err)
		ev := log.Error()
		if report.Status < http.StatusInternalServerError {
			ev = log.Warn()
		}
		ev.Err(err).Int("status", report.Status).Msg("request failed")
		return Reply{Status: report.Status, Body: ErrorBody(spec, report)}
	}
	return Reply{Status: http.StatusOK, Body: res}
}

func (g *Gateway) process(ctx context.Context, spec OperationSpec, req Request, log zerolog.Logger) (*Result, error) {
	var total int64
	for _, f := range req.Files {
		total += f.SizeBytes
	}
	log.Info().Int("files", len(req.Files)).Int64("bytes", total).Msg("stage complete")

	opts := staging.ParseOptions(req.Fields)
	if err := spec.Limits.Check(req.Files, opts, spec.Fields...); err != nil {
		return nil, err
	}

	payload, err := g.builder.Build(ctx, spec, req.Files, opts)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("path", spec.UpstreamPath).
		Int("body_bytes", len(payload.Body)).
		Dur("timeout", g.client.TimeoutFor(spec)).
		Msg("gateway call sent")

	start := time.Now()
	resp, err := g.client.Do(ctx, spec, payload)
	elapsed := time.Since(start)
	if err != nil {
		log.Info().Dur("elapsed", elapsed).Str("result", "error").Msg("gateway call result")
		return nil, err
	}
	log.Info().
		Dur("elapsed", elapsed).
		Int("status", resp.Status).
		Str("content_type", resp.ContentType).
		Int("body_bytes", len(resp.Body)).
		Msg("gateway call result")

	return g.normalizer.Normalize(spec, resp, req.Files, opts)
}
