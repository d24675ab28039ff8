package tiktok

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"
	"golang.org/x/net/publicsuffix"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/config"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/logger"
)

const (
	rehydrationScript = "script#__UNIVERSAL_DATA_FOR_REHYDRATION__"
	appContextPath    = `__DEFAULT_SCOPE__.webapp\.app-context`
	msTokenCookie     = "msToken"
	maxBodyBytes      = 32 << 20
)

// Options configures the web client.
type Options struct {
	BaseURL   string
	MsToken   string
	UserAgent string
	Timeout   time.Duration
	PageSize  int
}

// Client talks to the platform's public web endpoints.
type Client struct {
	opts Options
}

func NewClient(opts Options) *Client {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 30
	}
	return &Client{opts: opts}
}

// NewOpener returns the mock platform when USE_MOCK_PLATFORM is set, the
// web client otherwise.
func NewOpener(cfg *config.Config) Opener {
	if cfg.UseMock {
		return NewMock()
	}
	return NewClient(Options{
		BaseURL:   cfg.TikTokBaseURL,
		MsToken:   cfg.MsToken,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.HTTPTimeout,
		PageSize:  cfg.PageSize,
	})
}

// Open creates one paced session. The landing page is loaded first so the
// cookie jar holds whatever tokens the platform hands out.
func (c *Client) Open(ctx context.Context, opts SessionOptions) (Session, error) {
	if opts.Sessions != 1 {
		return nil, fmt.Errorf("only a single session is supported, got %d", opts.Sessions)
	}
	if opts.SleepAfter < 0 {
		return nil, fmt.Errorf("sleep_after must not be negative")
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	s := &webSession{
		opts:     c.opts,
		http:     &http.Client{Timeout: c.opts.Timeout, Jar: jar},
		language: "en",
		region:   "US",
		msToken:  c.opts.MsToken,
		log:      logger.New().WithComponent("tiktok.session"),
	}
	if err := s.bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.pacer = backoff.NewTicker(backoff.NewConstantBackOff(opts.SleepAfter))
	s.log.WithField("sleep_after", opts.SleepAfter.String()).WithField("region", s.region).Info("session created")
	return s, nil
}

type webSession struct {
	opts     Options
	http     *http.Client
	pacer    *backoff.Ticker
	language string
	region   string
	msToken  string
	closed   atomic.Bool
	log      *logger.Logger
}

func (s *webSession) bootstrap(ctx context.Context) error {
	status, body, err := doRequest(ctx, s.http, http.MethodGet, s.opts.BaseURL+"/", s.headers("text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"))
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("landing page status=%d", status)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse landing page: %w", err)
	}
	// the rehydration blob is optional; defaults apply without it
	if raw := strings.TrimSpace(doc.Find(rehydrationScript).First().Text()); raw != "" && gjson.Valid(raw) {
		appCtx := gjson.Get(raw, appContextPath)
		if v := appCtx.Get("region").String(); v != "" {
			s.region = v
		}
		if v := appCtx.Get("language").String(); v != "" {
			s.language = v
		}
	}

	if base, err := url.Parse(s.opts.BaseURL); err == nil {
		for _, ck := range s.http.Jar.Cookies(base) {
			if ck.Name == msTokenCookie && ck.Value != "" {
				s.msToken = ck.Value
			}
		}
	}
	return nil
}

func (s *webSession) headers(accept string) map[string]string {
	return map[string]string{
		"User-Agent":      s.opts.UserAgent,
		"Accept":          accept,
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         s.opts.BaseURL + "/",
	}
}

// wait blocks until the pacer allows the next request burst.
func (s *webSession) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-s.pacer.C:
		if !ok {
			return ErrSessionClosed
		}
		return nil
	}
}

func (s *webSession) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.pacer != nil {
		s.pacer.Stop()
	}
	s.http.CloseIdleConnections()
	return nil
}

func doRequest(ctx context.Context, client *http.Client, method, urlString string, headers map[string]string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, urlString, nil)
	if err != nil {
		return 0, nil, err
	}
	for k, v := range headers {
		if strings.TrimSpace(v) == "" {
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
