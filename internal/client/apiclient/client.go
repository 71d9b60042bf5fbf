// Package apiclient is the admin console's HTTP client. It attaches the
// session's bearer token to every call and recovers from an expired access
// token with one shared refresh before retrying the request once.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"humanityclub/site/internal/apperr"
	"humanityclub/site/internal/client/session"
	"humanityclub/site/internal/config"
)

const (
	MsgConnection     = "Unable to connect to the server. Please check your connection and try again."
	MsgRateLimited    = "Too many requests. Please try again later."
	MsgServerError    = "An unexpected error occurred. Our team has been notified."
	MsgNotFound       = "The requested resource was not found."
	MsgSessionExpired = "Your session has expired. Please log in again."
)

// ErrSessionEnded is returned when the session was logged out while a
// request was waiting on a refresh.
var ErrSessionEnded = apperr.New(apperr.KindToken, MsgSessionExpired)

type Client struct {
	baseURL    string
	http       *http.Client
	session    *session.Store
	production bool
	timeout    time.Duration
	log        zerolog.Logger

	refreshes singleflight.Group
}

func New(cfg *config.ClientConfig, store *session.Store, log zerolog.Logger) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		http:       &http.Client{Timeout: cfg.Timeout},
		session:    store,
		production: cfg.Environment == "production",
		timeout:    cfg.Timeout,
		log:        log,
	}
	store.SetRevoker(c)
	return c
}

// File is an in-memory upload, kept as bytes so a retried request can send
// it again.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type call struct {
	method string
	path   string
	json   any
	fields map[string]string
	file   *File
	// public calls never carry the session token and are never retried.
	public bool
	bearer string
}

func (c *Client) do(ctx context.Context, cl call, out any) error {
	retried := false
	for {
		var (
			data   session.Data
			gen    uint64
			authed bool
		)
		if !cl.public && cl.bearer == "" {
			data, gen, authed = c.session.Snapshot()
		}

		req, err := c.newRequest(ctx, cl)
		if err != nil {
			return err
		}
		switch {
		case cl.bearer != "":
			req.Header.Set("Authorization", "Bearer "+cl.bearer)
		case authed:
			req.Header.Set("Authorization", "Bearer "+data.AccessToken)
		}

		c.log.Debug().Str("method", cl.method).Str("path", cl.path).Bool("retry", retried).Msg("api request")

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return apperr.Wrap(err, apperr.KindTransport, MsgConnection)
		}

		if resp.StatusCode == http.StatusUnauthorized && authed && !retried {
			drain(resp)
			retried = true
			if err := c.refresh(ctx, gen, data.AccessToken); err != nil {
				return err
			}
			continue
		}

		return c.decode(resp, out)
	}
}

// refresh exchanges the refresh token once for every request that failed
// with the same access token. A rejected refresh ends the session. The
// exchange is not tied to any one caller's cancellation; a cancelled caller
// stops waiting and the others still get the result.
func (c *Client) refresh(ctx context.Context, gen uint64, failedToken string) error {
	results := c.refreshes.DoChan(failedToken, func() (any, error) {
		ctx, cancel := c.detach(ctx)
		defer cancel()

		// Another hcoctl process sharing the session file may have rotated
		// the pair already; refreshing with the old one would be a replay.
		c.session.Sync()
		data, current, ok := c.session.Snapshot()
		if !ok || current != gen {
			return nil, ErrSessionEnded
		}
		if data.AccessToken != failedToken {
			return nil, nil
		}

		var pair authPayload
		err := c.do(ctx, call{
			method: http.MethodPost,
			path:   "/admin/refresh-token",
			json:   map[string]string{"refreshToken": data.RefreshToken},
			public: true,
		}, &pair)
		if apperr.Is(err, apperr.KindTransport) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if err != nil {
			c.log.Debug().Err(err).Msg("refresh rejected")
			c.session.Logout(ctx, session.MsgExpired)
			return nil, ErrSessionEnded
		}

		if err := c.session.UpdateTokens(gen, pair.AccessToken, pair.RefreshToken); err != nil {
			if errors.Is(err, session.ErrStale) {
				return nil, ErrSessionEnded
			}
			return nil, err
		}
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-results:
		return res.Err
	}
}

// detach drops ctx's cancellation but keeps its values, bounded by the
// client timeout.
func (c *Client) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
	)
	switch {
	case cl.file != nil || cl.fields != nil:
		buf, ct, err := multipartBody(cl.fields, cl.file)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case cl.json != nil:
		raw, err := json.Marshal(cl.json)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body, contentType = bytes.NewReader(raw), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func multipartBody(fields map[string]string, file *File) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if file != nil {
		ct := file.ContentType
		if ct == "" {
			ct = http.DetectContentType(file.Data)
		}
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, file.Name))
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

type envelope struct {
	Success bool            `json:"success"`
	Kind    apperr.Kind     `json:"kind"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
	Data    json.RawMessage `json:"data"`
}

// decode unwraps the response envelope into out, or turns a failure into an
// *apperr.Error.
func (c *Client) decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return apperr.Wrap(err, apperr.KindTransport, MsgConnection)
	}

	var env envelope
	jsonErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if jsonErr != nil {
			return apperr.Wrap(jsonErr, apperr.KindInternal, "Unexpected response from server")
		}
		if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
			return nil
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return apperr.Wrap(err, apperr.KindInternal, "Unexpected response from server")
		}
		return nil
	}

	return c.statusError(resp.StatusCode, env, jsonErr == nil)
}

func (c *Client) statusError(status int, env envelope, parsed bool) error {
	kind := env.Kind
	if !parsed || kind == "" {
		kind = apperr.KindFromStatus(status)
	}
	message := env.Message
	if !parsed || message == "" {
		message = http.StatusText(status)
	}

	switch {
	case status == http.StatusTooManyRequests:
		kind, message = apperr.KindRateLimited, MsgRateLimited
	case status >= 500 && (c.production || !parsed):
		message = MsgServerError
	case status == http.StatusNotFound && !parsed:
		message = MsgNotFound
	}

	return &apperr.Error{Kind: kind, Message: message, Detail: env.Detail}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
