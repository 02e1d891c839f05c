package domain

// FriendOwner is one followed account's wallet that holds the collection.
type FriendOwner struct {
	FID         uint64  `json:"fid"`
	Username    string  `json:"username"`
	DisplayName string  `json:"displayName,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	Address     Address `json:"address"`
}

// FriendsResult answers the collection-friends query.
type FriendsResult struct {
	Contract Address       `json:"contract"`
	Network  Chain         `json:"network"`
	FID      uint64        `json:"fid"`
	Friends  []FriendOwner `json:"friends"`
	Total    int           `json:"total"`
	HasMore  bool          `json:"hasMore"`
}

// Truncate returns a copy limited to the first limit friends.
func (r FriendsResult) Truncate(limit int) FriendsResult {
	out := r
	if limit > 0 && len(r.Friends) > limit {
		out.Friends = append([]FriendOwner(nil), r.Friends[:limit]...)
	} else {
		out.Friends = append([]FriendOwner{}, r.Friends...)
	}
	out.HasMore = limit > 0 && r.Total > limit
	return out
}
