package upstream

import (
	"github.com/tidwall/gjson"

	"github.com/vanshika/nftgateway/internal/metrics"
)

// Projection is a named gjson path into a response body.
type Projection struct {
	Name string
	Path string
}

// UsersSearch names the recursive users-array fallback.
const UsersSearch = "users-search"

// ProfileProjections are the known wrappers around social profiles, in the
// order they are tried.
var ProfileProjections = []Projection{
	{Name: "result.user", Path: "result.user"},
	{Name: "user", Path: "user"},
	{Name: "result.users", Path: "result.users"},
	{Name: "users", Path: "users"},
	{Name: "data.farcasterProfile", Path: "data.farcasterProfile"},
}

// Match is the part of a body a projection selected.
type Match struct {
	Name  string
	Value gjson.Result
}

// Project returns the first projection present and non-null in body, falling
// back to a recursive search for a users array. The matched projection is
// counted per provider. Unknown shapes are a decode error.
func Project(m *metrics.Metrics, provider string, body []byte, projections ...Projection) (Match, error) {
	if !gjson.ValidBytes(body) {
		return Match{}, &Error{Kind: KindDecode, Provider: provider, Message: "response is not valid JSON"}
	}
	for _, p := range projections {
		v := gjson.GetBytes(body, p.Path)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		m.ObserveProjection(provider, p.Name)
		return Match{Name: p.Name, Value: v}, nil
	}
	if users, ok := FindUsersArray(gjson.ParseBytes(body)); ok {
		m.ObserveProjection(provider, UsersSearch)
		return Match{Name: UsersSearch, Value: users}, nil
	}
	m.ObserveProjection(provider, "none")
	return Match{}, &Error{Kind: KindDecode, Provider: provider, Message: "no known profile shape in response"}
}

// FindUsersArray searches v depth first for a "users" array whose first
// element has a numeric fid.
func FindUsersArray(v gjson.Result) (gjson.Result, bool) {
	var found gjson.Result
	ok := false
	switch {
	case v.IsObject():
		v.ForEach(func(key, value gjson.Result) bool {
			if key.String() == "users" && value.IsArray() {
				if first := value.Get("0.fid"); first.Type == gjson.Number {
					found, ok = value, true
					return false
				}
			}
			if value.IsObject() || value.IsArray() {
				if r, hit := FindUsersArray(value); hit {
					found, ok = r, true
					return false
				}
			}
			return true
		})
	case v.IsArray():
		v.ForEach(func(_, value gjson.Result) bool {
			if r, hit := FindUsersArray(value); hit {
				found, ok = r, true
				return false
			}
			return true
		})
	}
	return found, ok
}
