package handler

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/alanjrogers/aws-s3/internal/auth"
	"github.com/alanjrogers/aws-s3/sigv2"
)

// Identity headers added to forwarded requests so the upstream can attribute
// traffic without understanding the signature scheme.
const (
	ForwardedUserHeader      = "X-Gateway-User"
	ForwardedUserIDHeader    = "X-Gateway-User-Id"
	ForwardedAccessKeyHeader = "X-Gateway-Access-Key"
)

// ProxyHandler forwards authenticated requests to the protected upstream.
type ProxyHandler struct {
	proxy     *httputil.ReverseProxy
	stripAuth bool
	logger    zerolog.Logger
}

// NewProxyHandler creates a reverse proxy targeting upstreamURL.
// When stripAuth is set, signature material is removed before forwarding so
// the upstream never sees credentials it cannot verify.
func NewProxyHandler(upstreamURL string, stripAuth bool, logger zerolog.Logger) (*ProxyHandler, error) {
	target, err := url.Parse(upstreamURL)
	if err != nil {
		return nil, err
	}

	componentLogger := logger.With().Str("handler", "proxy").Logger()

	h := &ProxyHandler{
		stripAuth: stripAuth,
		logger:    componentLogger,
	}

	h.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			h.rewriteAuth(pr)
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			componentLogger.Error().Err(err).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("upstream request failed")
			writeUpstreamError(w, r)
		},
	}

	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.proxy.ServeHTTP(w, r)
}

// rewriteAuth strips signature material and stamps the verified identity
// onto the outbound request.
func (h *ProxyHandler) rewriteAuth(pr *httputil.ProxyRequest) {
	if h.stripAuth {
		pr.Out.Header.Del(auth.AuthorizationHeader)

		query := pr.Out.URL.Query()
		if query.Has(sigv2.QuerySignature) {
			query.Del(sigv2.QueryAccessKeyID)
			query.Del(sigv2.QueryExpires)
			query.Del(sigv2.QuerySignature)
			pr.Out.URL.RawQuery = query.Encode()
		}
	}

	if authCtx := auth.GetAuthContext(pr.In.Context()); authCtx != nil {
		pr.Out.Header.Set(ForwardedUserHeader, authCtx.Username)
		pr.Out.Header.Set(ForwardedUserIDHeader, strconv.FormatInt(authCtx.UserID, 10))
		pr.Out.Header.Set(ForwardedAccessKeyHeader, authCtx.AccessKeyID)
	}
}
