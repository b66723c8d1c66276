package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type ClientConfig struct {
	Timeout         time.Duration
	RetryMaxElapsed time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
}

type Client struct {
	http *http.Client
	conf ClientConfig
}

func NewClient(conf ClientConfig) *Client {
	if conf.Timeout == 0 {
		conf.Timeout = 10 * time.Second
	}
	if conf.RetryMaxElapsed == 0 {
		conf.RetryMaxElapsed = 15 * time.Second
	}
	tr := &http.Transport{
		DialContext:     (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		MaxIdleConns:    conf.MaxIdleConns,
		IdleConnTimeout: conf.IdleConnTimeout,
	}
	return &Client{
		http: &http.Client{Transport: tr, Timeout: conf.Timeout},
		conf: conf,
	}
}

// DoWithRetry runs the request with exponential backoff. 5xx responses
// are retried; 4xx are returned to the caller as-is.
func (c *Client) DoWithRetry(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	var resp *http.Response
	operation := func() error {
		req, err := build()
		if err != nil {
			return backoff.Permanent(err)
		}
		r, err := c.http.Do(req.WithContext(ctx))
		if err != nil {
			return err
		}
		if r.StatusCode >= 500 {
			io.Copy(io.Discard, r.Body)
			r.Body.Close()
			return fmt.Errorf("upstream status %d", r.StatusCode)
		}
		resp = r
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.conf.RetryMaxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return resp, nil
}
