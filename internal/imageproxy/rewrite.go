package imageproxy

import (
	"net"
	"net/url"
	"strings"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
)

const (
	arweaveGateway = "https://arweave.net/"
	cdnHost        = "nft-cdn.alchemy.com"
	variantFull    = "/original"
	variantThumb   = "/thumb"
)

var blockedHosts = set.NewStrings("localhost", "127.0.0.1", "::1", "0.0.0.0")

type mode int

const (
	modeDirect mode = iota
	modeIPFSFallback
	modeCDNVariantSwap
	modeGiveUp
)

func (m mode) String() string {
	switch m {
	case modeDirect:
		return "direct"
	case modeIPFSFallback:
		return "ipfsFallback"
	case modeCDNVariantSwap:
		return "cdnVariantSwap"
	}
	return "giveUp"
}

// state is the fetch plan for one proxied URL. idx is the gateway currently
// in use; -1 means the caller's own /ipfs/ URL.
type state struct {
	mode     mode
	url      string
	cid      string
	gateways []string
	idx      int
	swapped  bool
	stripped bool
}

type failureKind int

const (
	failStatus failureKind = iota
	failNetwork
	failContent
)

type failure struct {
	kind   failureKind
	status int
}

// plan applies the rewrite pipeline to raw.
func plan(raw string, gateways []string, cdnKey string) (*state, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.BadRequestf("missing image url")
	}
	s := &state{mode: modeDirect, url: raw, gateways: gateways, idx: -1}

	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "ipfs://"):
		cid := strings.TrimPrefix(raw[len("ipfs://"):], "ipfs/")
		if cid == "" || len(gateways) == 0 {
			return nil, errors.NotValidf("ipfs url %q", raw)
		}
		s.mode, s.cid, s.idx = modeIPFSFallback, cid, 0
		s.url = gateways[0] + cid
	case strings.HasPrefix(lower, "ar://"):
		id := raw[len("ar://"):]
		if id == "" {
			return nil, errors.NotValidf("arweave url %q", raw)
		}
		s.url = arweaveGateway + id
	}

	u, err := url.Parse(s.url)
	if err != nil {
		return nil, errors.NotValidf("image url %q", raw)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.NotValidf("image url %q", raw)
	}
	host := strings.ToLower(u.Hostname())
	// Configured gateways are trusted; only caller supplied hosts are checked.
	if s.mode != modeIPFSFallback && isBlockedHost(host) {
		return nil, errors.Forbiddenf("image host %q", host)
	}

	if s.mode == modeDirect {
		if i := strings.Index(u.Path, "/ipfs/"); i >= 0 && len(gateways) > 0 {
			if cid := u.Path[i+len("/ipfs/"):]; cid != "" {
				s.mode, s.cid = modeIPFSFallback, cid
			}
		}
	}
	if s.mode == modeDirect && (host == cdnHost || strings.HasSuffix(host, "."+cdnHost)) {
		s.mode = modeCDNVariantSwap
		if !strings.HasSuffix(u.Path, variantFull) && !strings.HasSuffix(u.Path, variantThumb) {
			u.Path = strings.TrimRight(u.Path, "/") + variantFull
		}
		if cdnKey != "" && u.Query().Get("apiKey") == "" {
			q := u.Query()
			q.Set("apiKey", cdnKey)
			u.RawQuery = q.Encode()
		}
		s.url = u.String()
	}
	return s, nil
}

func isBlockedHost(host string) bool {
	host = strings.ToLower(host)
	return blockedHosts.Contains(host) || isLoopback(host)
}

func isLoopback(host string) bool {
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsUnspecified())
}

// advance moves to the next attempt after f, or into modeGiveUp.
func (s *state) advance(f failure) {
	switch s.mode {
	case modeIPFSFallback:
		if f.kind == failStatus && f.status != 403 && f.status != 404 && f.status < 500 && f.status != 429 {
			s.mode = modeGiveUp
			return
		}
		s.idx++
		if s.idx >= len(s.gateways) {
			s.mode = modeGiveUp
			return
		}
		s.url = s.gateways[s.idx] + s.cid
	case modeCDNVariantSwap:
		if f.kind == failNetwork {
			return
		}
		if f.kind != failStatus || f.status < 400 || f.status >= 500 {
			s.mode = modeGiveUp
			return
		}
		u, err := url.Parse(s.url)
		if err != nil {
			s.mode = modeGiveUp
			return
		}
		switch {
		case !s.swapped:
			s.swapped = true
			switch {
			case strings.HasSuffix(u.Path, variantFull):
				u.Path = strings.TrimSuffix(u.Path, variantFull) + variantThumb
			case strings.HasSuffix(u.Path, variantThumb):
				u.Path = strings.TrimSuffix(u.Path, variantThumb) + variantFull
			}
		case !s.stripped && u.RawQuery != "":
			s.stripped = true
			u.RawQuery = ""
		default:
			s.mode = modeGiveUp
			return
		}
		s.url = u.String()
	default:
		if f.kind != failNetwork {
			s.mode = modeGiveUp
		}
	}
}
