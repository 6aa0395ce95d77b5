package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rmitchellscott/pdfgateway/internal/staging"
	"github.com/rmitchellscott/pdfgateway/internal/storage"
)

const cleanupTimeout = 30 * time.Second

// Cleanup removes one request's staged files. Run may be called any number
// of times; the files are deleted on the first call only.
type Cleanup struct {
	once    sync.Once
	backend storage.Backend
	files   []staging.StagedFile
	log     zerolog.Logger
}

func NewCleanup(backend storage.Backend, files []staging.StagedFile, log zerolog.Logger) *Cleanup {
	return &Cleanup{backend: backend, files: files, log: log}
}

// Run deletes every staged file. Failures are logged and swallowed.
func (c *Cleanup) Run(ctx context.Context) {
	c.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()

		removed := 0
		for _, f := range c.files {
			if err := c.backend.Delete(ctx, f.Path); err != nil {
				c.log.Warn().Err(err).Str("key", f.Path).Msg("cleanup failed")
				continue
			}
			removed++
		}
		c.log.Info().
			Int("files", len(c.files)).
			Int("removed", removed).
			Msg("cleanup done")
	})
}
