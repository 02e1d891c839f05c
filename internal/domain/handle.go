package domain

import (
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// HandleKind distinguishes usernames from numeric ids.
type HandleKind int

const (
	HandleUsername HandleKind = iota
	HandleFID
)

// Handle is a caller supplied social identity.
type Handle struct {
	Kind  HandleKind
	Value string
}

// NewUsernameHandle lowercases the username and strips a leading @.
func NewUsernameHandle(username string) (Handle, error) {
	v := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
	if v == "" {
		return Handle{}, errors.BadRequestf("username is required")
	}
	return Handle{Kind: HandleUsername, Value: v}, nil
}

// NewFIDHandle accepts non-negative integers only.
func NewFIDHandle(fid string) (Handle, error) {
	n, err := ParseFID(fid)
	if err != nil {
		return Handle{}, err
	}
	return FIDHandle(n), nil
}

// FIDHandle wraps an already parsed fid.
func FIDHandle(fid uint64) Handle {
	return Handle{Kind: HandleFID, Value: strconv.FormatUint(fid, 10)}
}

// ParseFID parses a non-negative numeric id.
func ParseFID(s string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, errors.BadRequestf("fid %q must be a non-negative integer", s)
	}
	return n, nil
}

// FID returns the numeric value of an fid handle.
func (h Handle) FID() (uint64, bool) {
	if h.Kind != HandleFID {
		return 0, false
	}
	n, err := strconv.ParseUint(h.Value, 10, 64)
	return n, err == nil
}

// CacheKey namespaces usernames and fids separately.
func (h Handle) CacheKey() string {
	if h.Kind == HandleFID {
		return "profile:fid:" + h.Value
	}
	return "profile:username:" + h.Value
}

func (h Handle) String() string {
	if h.Kind == HandleFID {
		return "fid:" + h.Value
	}
	return "@" + h.Value
}
