package domain

import "time"

// Profile is a social identity with its on-chain addresses.
type Profile struct {
	FID                uint64    `json:"fid"`
	Username           string    `json:"username"`
	DisplayName        string    `json:"displayName,omitempty"`
	ImageURL           string    `json:"imageUrl,omitempty"`
	Bio                string    `json:"bio,omitempty"`
	CustodyAddress     Address   `json:"custodyAddress,omitempty"`
	ConnectedAddresses []Address `json:"connectedAddresses"`
	FollowerCount      *uint64   `json:"followerCount,omitempty"`
	FollowingCount     *uint64   `json:"followingCount,omitempty"`
	FetchedAt          time.Time `json:"fetchedAt"`
}

// Complete reports whether the profile carries both a numeric id and a username.
func (p Profile) Complete() bool {
	return p.FID > 0 && p.Username != ""
}

// Normalize dedups connected addresses and unions the custody address into them.
func (p *Profile) Normalize() {
	raw := AddressStrings(p.ConnectedAddresses)
	if p.CustodyAddress != "" {
		raw = append(raw, string(p.CustodyAddress))
	}
	p.ConnectedAddresses = NormalizeAddresses(raw)
	if p.CustodyAddress != "" {
		if a, err := ParseAddress(string(p.CustodyAddress)); err == nil {
			p.CustodyAddress = a
		} else {
			p.CustodyAddress = ""
		}
	}
}

// MergeAddresses adds addresses to the connected set, keeping it normalized.
func (p *Profile) MergeAddresses(addrs []Address) {
	p.ConnectedAddresses = append(p.ConnectedAddresses, addrs...)
	p.Normalize()
}

// Addresses returns the connected addresses, custody included.
func (p Profile) Addresses() []Address {
	return p.ConnectedAddresses
}
