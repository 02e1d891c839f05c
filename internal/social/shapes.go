package social

import (
	"github.com/tidwall/gjson"

	"github.com/vanshika/nftgateway/internal/domain"
)

// Field aliases across the social indexer's v1/v2 payloads and the portfolio
// service's farcasterProfile object.
var (
	displayNamePaths    = []string{"display_name", "displayName", "metadata.displayName"}
	imagePaths          = []string{"pfp_url", "pfp.url", "imageUrl", "metadata.imageUrl"}
	bioPaths            = []string{"profile.bio.text", "bio", "metadata.description"}
	custodyPaths        = []string{"custody_address", "custodyAddress"}
	connectedPaths      = []string{"verified_addresses.eth_addresses", "verifications", "connectedAddresses", "connected_addresses"}
	followerCountPaths  = []string{"follower_count", "followerCount"}
	followingCountPaths = []string{"following_count", "followingCount"}
)

func firstOf(v gjson.Result, paths []string) gjson.Result {
	for _, p := range paths {
		if r := v.Get(p); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

func countOf(v gjson.Result, paths []string) *uint64 {
	r := firstOf(v, paths)
	if r.Type != gjson.Number || r.Int() < 0 {
		return nil
	}
	n := r.Uint()
	return &n
}

// profileFromJSON reads one user object in any of the known shapes. Items
// of the following list may wrap the user as {"user": {...}}.
func profileFromJSON(v gjson.Result) domain.Profile {
	if u := v.Get("user"); u.IsObject() {
		v = u
	}
	p := domain.Profile{
		FID:            v.Get("fid").Uint(),
		Username:       v.Get("username").String(),
		DisplayName:    firstOf(v, displayNamePaths).String(),
		ImageURL:       firstOf(v, imagePaths).String(),
		Bio:            firstOf(v, bioPaths).String(),
		CustodyAddress: domain.Address(firstOf(v, custodyPaths).String()),
		FollowerCount:  countOf(v, followerCountPaths),
		FollowingCount: countOf(v, followingCountPaths),
	}
	var raw []string
	for _, a := range firstOf(v, connectedPaths).Array() {
		if a.IsObject() {
			a = a.Get("address")
		}
		raw = append(raw, a.String())
	}
	p.ConnectedAddresses = domain.NormalizeAddresses(raw)
	p.Normalize()
	return p
}

// profilesFromMatch turns a projected value, object or array, into profiles.
func profilesFromMatch(v gjson.Result) []domain.Profile {
	if !v.IsArray() {
		if !v.IsObject() {
			return nil
		}
		return []domain.Profile{profileFromJSON(v)}
	}
	items := v.Array()
	out := make([]domain.Profile, 0, len(items))
	for _, item := range items {
		out = append(out, profileFromJSON(item))
	}
	return out
}

// verifiedAddresses reads the verifications endpoint in either shape.
func verifiedAddresses(body []byte) []domain.Address {
	var raw []string
	for _, v := range gjson.GetBytes(body, "result.verifications").Array() {
		if v.IsObject() {
			v = v.Get("address")
		}
		raw = append(raw, v.String())
	}
	for _, v := range gjson.GetBytes(body, "verified_addresses.eth_addresses").Array() {
		raw = append(raw, v.String())
	}
	return domain.NormalizeAddresses(raw)
}
