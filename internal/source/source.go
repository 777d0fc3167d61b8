// Package source opens the raw bytes of a cleaning job's input. The reader
// picks a parser from Name, so sources report a file-like name even when the
// bytes come from the network.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"dataclean/internal/config"
	"dataclean/internal/source/file"
	"dataclean/internal/source/httpsrc"

	"go.uber.org/zap"
)

// Source yields the input bytes of a run.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Name is a file name whose extension identifies the format.
	Name() string
}

// New builds the Source described by cfg.
func New(cfg config.Source, log *zap.Logger) (Source, error) {
	switch cfg.Kind {
	case "file", "":
		if cfg.File.Path == "" {
			return nil, fmt.Errorf("source: file path is empty")
		}
		return file.NewLocal(cfg.File.Path), nil
	case "http":
		h := cfg.HTTP
		hdr := http.Header{}
		for k, v := range h.Headers {
			hdr.Set(k, v)
		}
		var timeout time.Duration
		if h.Timeout != "" {
			d, err := time.ParseDuration(h.Timeout)
			if err != nil {
				return nil, fmt.Errorf("source: http timeout: %w", err)
			}
			timeout = d
		}
		c := httpsrc.NewClient(httpsrc.Config{
			Timeout:            timeout,
			MaxRetries:         h.MaxRetries,
			InsecureSkipVerify: h.InsecureSkipVerify,
			BaseHeaders:        hdr,
			Logger:             log,
		})
		return httpsrc.NewRemote(c, h.URL)
	default:
		return nil, fmt.Errorf("source: unsupported kind %q", cfg.Kind)
	}
}
