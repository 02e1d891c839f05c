package cache

import (
	"sort"
	"strings"

	"github.com/vanshika/nftgateway/internal/domain"
)

// Key joins an endpoint name and its normalized parameters.
func Key(endpoint string, parts ...string) string {
	return strings.Join(append([]string{endpoint}, parts...), ":")
}

// AddressList renders addresses sorted and comma-joined so equal sets share a key.
func AddressList(addrs []domain.Address) string {
	s := domain.AddressStrings(addrs)
	sort.Strings(s)
	return strings.Join(s, ",")
}
