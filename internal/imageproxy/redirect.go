package imageproxy

import (
	"net/http"

	"github.com/juju/errors"
)

const maxRedirects = 10

// NewHTTPClient returns the outbound client for image fetches. Redirects are
// only followed to hosts a caller could have requested directly.
func NewHTTPClient() *http.Client {
	return &http.Client{CheckRedirect: checkRedirect}
}

func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.Errorf("stopped after %d redirects", maxRedirects)
	}
	if host := req.URL.Hostname(); isBlockedHost(host) {
		return errors.Forbiddenf("redirect to image host %q", host)
	}
	return nil
}
