package provider

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultCallbackTimeout bounds how long Present waits for the redirect.
	DefaultCallbackTimeout = 10 * time.Minute

	callbackPath = "/callback"
)

var ErrUserAgentNotStarted = errors.New("loopback user agent not started")

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html><head><title>Authorization</title></head><body>
{{if .Error}}<h1>Authorization failed</h1><p>{{.Error}}{{if .Description}}: {{.Description}}{{end}}</p>
{{else}}<h1>Authorization complete</h1><p>You can close this window.</p>{{end}}
</body></html>
`))

var _ UserAgent = (*LoopbackUserAgent)(nil)

// LoopbackUserAgent receives the authorization redirect on a local HTTP server
// (RFC 8252 §7.3). It handles exactly one redirect.
type LoopbackUserAgent struct {
	port    int
	timeout time.Duration
	open    func(authURL string) error
	out     io.Writer

	server      *http.Server
	listener    net.Listener
	redirectURI string
	resultCh    chan url.Values
	errorCh     chan error
	once        sync.Once
}

type LoopbackOption func(*LoopbackUserAgent)

// WithBrowserOpener replaces the function that opens the authorization URL.
func WithBrowserOpener(open func(authURL string) error) LoopbackOption {
	return func(a *LoopbackUserAgent) {
		a.open = open
	}
}

// WithCallbackTimeout overrides DefaultCallbackTimeout.
func WithCallbackTimeout(timeout time.Duration) LoopbackOption {
	return func(a *LoopbackUserAgent) {
		a.timeout = timeout
	}
}

// WithOutput sets where the authorization URL is printed. Defaults to stderr.
func WithOutput(w io.Writer) LoopbackOption {
	return func(a *LoopbackUserAgent) {
		a.out = w
	}
}

// NewLoopbackUserAgent creates a user agent listening on 127.0.0.1:port. Port 0 picks a free port.
func NewLoopbackUserAgent(port int, options ...LoopbackOption) *LoopbackUserAgent {
	a := &LoopbackUserAgent{
		port:     port,
		timeout:  DefaultCallbackTimeout,
		open:     OpenBrowser,
		out:      os.Stderr,
		resultCh: make(chan url.Values, 1),
		errorCh:  make(chan error, 1),
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// Start begins listening and returns the redirect URI to put in the authorization request.
// The server stops when ctx is done or Stop is called.
func (a *LoopbackUserAgent) Start(ctx context.Context) (string, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", a.port))
	if err != nil {
		return "", errors.Wrap(err, "[LoopbackUserAgent.Start] listen")
	}
	a.listener = listener
	a.port = listener.Addr().(*net.TCPAddr).Port
	a.redirectURI = fmt.Sprintf("http://127.0.0.1:%d%s", a.port, callbackPath)

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, a.handleCallback)
	a.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case a.errorCh <- err:
			default:
			}
		}
	}()
	go func() {
		<-ctx.Done()
		a.Stop()
	}()
	return a.redirectURI, nil
}

// RedirectURI returns the redirect URI once started.
func (a *LoopbackUserAgent) RedirectURI() string {
	return a.redirectURI
}

// Present opens authURL and waits for the redirect.
func (a *LoopbackUserAgent) Present(ctx context.Context, authURL string) (url.Values, error) {
	if a.server == nil {
		return nil, ErrUserAgentNotStarted
	}
	fmt.Fprintf(a.out, "Open the following URL to authorize:\n\n  %s\n\n", authURL)
	if err := a.open(authURL); err != nil {
		log.Warn().Err(err).Msg("Could not open a browser, open the URL manually")
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	select {
	case values := <-a.resultCh:
		return values, nil
	case err := <-a.errorCh:
		return nil, errors.Wrap(err, "[LoopbackUserAgent.Present] callback server")
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "[LoopbackUserAgent.Present] waiting for redirect")
	}
}

func (a *LoopbackUserAgent) handleCallback(w http.ResponseWriter, r *http.Request) {
	handled := false
	a.once.Do(func() {
		handled = true
		a.processCallback(w, r)
	})
	if !handled {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
	}
}

func (a *LoopbackUserAgent) processCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	// form_post responses arrive in the body; ParseForm merges them with the query
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed callback", http.StatusBadRequest)
		select {
		case a.errorCh <- errors.Wrap(err, "[LoopbackUserAgent] parse callback"):
		default:
		}
		return
	}
	query := r.Form
	data := map[string]string{
		"Error":       query.Get("error"),
		"Description": query.Get("error_description"),
	}
	if err := callbackPage.Execute(w, data); err != nil {
		log.Err(err).Msg("Failed to render callback page")
	}

	select {
	case a.resultCh <- query:
	default:
	}
}

// Stop shuts the callback server down.
func (a *LoopbackUserAgent) Stop() {
	if a.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.server.Shutdown(ctx)
}
