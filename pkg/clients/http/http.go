package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gantry-labs/gantry/pkg/clients/logger"
)

// HTTP defines an interface for checking the reachability of web urls
// referenced by cluster and image configurations
type HTTP interface {
	// Head makes a HTTP HEAD request to the given url, an error is
	// returned when the url can not be reached or the server responds
	// with a client or server error status
	Head(ctx context.Context, uri string) error
}

type HTTPImpl struct {
	httpc *http.Client
	l     logger.Logger
}

func NewHTTP(l logger.Logger) HTTP {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = 5 * time.Second
	transport.ResponseHeaderTimeout = 30 * time.Second

	httpc := &http.Client{
		Transport: transport,
	}

	return &HTTPImpl{httpc, l}
}

func (h *HTTPImpl) Head(ctx context.Context, uri string) error {
	h.l.Debug("Checking url is reachable", "uri", uri)

	rq, err := http.NewRequestWithContext(ctx, http.MethodHead, uri, nil)
	if err != nil {
		return fmt.Errorf("unable to construct request for %s: %w", uri, err)
	}

	resp, err := h.httpc.Do(rq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("url %s returned status %d", uri, resp.StatusCode)
	}

	return nil
}
