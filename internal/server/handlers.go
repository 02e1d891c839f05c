package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/vanshika/nftgateway/internal/domain"
	"github.com/vanshika/nftgateway/internal/friends"
	"github.com/vanshika/nftgateway/internal/nftindexer"
)

const (
	maxJSONBody     = 1 << 20
	maxMultichain   = 5
	defaultNftPages = 1
)

// ProfileResolver resolves a social handle to a profile.
type ProfileResolver interface {
	Resolve(ctx context.Context, h domain.Handle) (domain.Profile, error)
}

// NftIndexer is the subset of the indexer client the handlers call.
type NftIndexer interface {
	Configured() bool
	NftsForOwner(ctx context.Context, chain domain.Chain, owner domain.Address, opts nftindexer.Options) (domain.NftPage, error)
	OwnersForContract(ctx context.Context, chain domain.Chain, contract domain.Address) (set.Strings, error)
	AssetTransfers(ctx context.Context, chain domain.Chain, addresses []domain.Address) (*domain.TransferIndex, error)
	NftsAcrossChains(ctx context.Context, chains []domain.Chain, owners []domain.Address, maxPages int) (nftindexer.MultichainResult, error)
}

// PortfolioQuerier forwards GraphQL documents to the portfolio service.
type PortfolioQuerier interface {
	Configured() bool
	Query(ctx context.Context, body []byte) (json.RawMessage, error)
}

// FriendsFinder answers collection-friends queries.
type FriendsFinder interface {
	CollectionFriends(ctx context.Context, q friends.Query) (domain.FriendsResult, error)
}

// ErrNotConfigured is returned when a route's backing component is absent.
const ErrNotConfigured = errors.ConstError("component not configured")

type handlers struct {
	logger  *zap.Logger
	deps    RouterDependencies
	started time.Time
}

func newHandlers(logger *zap.Logger, deps RouterDependencies) *handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &handlers{logger: logger, deps: deps, started: deps.Clock.Now()}
}

// fail renders err and logs server-side failures.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error, resource string) {
	status := writeError(w, err, resource)
	fields := []zap.Field{zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err)}
	if status >= http.StatusInternalServerError {
		h.logger.Warn("request failed", fields...)
		return
	}
	h.logger.Debug("request rejected", fields...)
}

func (h *handlers) profile(w http.ResponseWriter, r *http.Request) {
	if h.deps.Profiles == nil {
		h.fail(w, r, errors.Annotate(ErrNotConfigured, "social resolver"), "")
		return
	}
	handle, err := handleFromQuery(r)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	p, err := h.deps.Profiles.Resolve(r.Context(), handle)
	if err != nil {
		h.fail(w, r, err, "Profile")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func handleFromQuery(r *http.Request) (domain.Handle, error) {
	q := r.URL.Query()
	if fid := strings.TrimSpace(q.Get("fid")); fid != "" {
		h, err := domain.NewFIDHandle(fid)
		if err != nil {
			return domain.Handle{}, errors.BadRequestf("invalid fid %q", fid)
		}
		return h, nil
	}
	if username := strings.TrimSpace(q.Get("username")); username != "" {
		h, err := domain.NewUsernameHandle(username)
		if err != nil {
			return domain.Handle{}, errors.BadRequestf("invalid username %q", username)
		}
		return h, nil
	}
	return domain.Handle{}, errors.BadRequestf("username or fid is required")
}

// chainParam folds the chain or network parameter, logging unknown values
// that fall back to ethereum.
func (h *handlers) chainParam(q map[string][]string, keys ...string) domain.Chain {
	for _, key := range keys {
		if vals := q[key]; len(vals) > 0 && strings.TrimSpace(vals[0]) != "" {
			chain, ok := domain.ChainOrDefault(vals[0])
			if !ok {
				h.logger.Info("unknown chain, using default", zap.String("chain", vals[0]), zap.Stringer("default", chain))
			}
			return chain
		}
	}
	return domain.ChainEthereum
}

func addressParam(r *http.Request, keys ...string) (domain.Address, error) {
	q := r.URL.Query()
	for _, key := range keys {
		if raw := q.Get(key); raw != "" {
			addr, err := domain.ParseAddress(raw)
			if err != nil {
				return "", errors.BadRequestf("invalid %s %q", key, raw)
			}
			return addr, nil
		}
	}
	return "", errors.BadRequestf("%s is required", keys[0])
}

func (h *handlers) alchemy(w http.ResponseWriter, r *http.Request) {
	if h.deps.Indexer == nil || !h.deps.Indexer.Configured() {
		h.fail(w, r, errors.Trace(nftindexer.ErrNotConfigured), "")
		return
	}
	var (
		payload any
		err     error
	)
	switch endpoint := r.URL.Query().Get("endpoint"); endpoint {
	case "getNFTsForOwner":
		payload, err = h.nftsForOwner(r)
	case "getOwnersForContract":
		payload, err = h.ownersForContract(r)
	case "getAssetTransfers":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		payload, err = h.assetTransfers(r)
	case "getNFTsMultichain":
		payload, err = h.nftsMultichain(r)
	case "":
		err = errors.BadRequestf("endpoint is required")
	default:
		err = errors.BadRequestf("unsupported endpoint %q", endpoint)
	}
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	respondJSON(w, http.StatusOK, payload)
}

func (h *handlers) nftsForOwner(r *http.Request) (any, error) {
	q := r.URL.Query()
	owner, err := addressParam(r, "owner")
	if err != nil {
		return nil, err
	}
	opts := nftindexer.Options{PageKey: q.Get("pageKey")}
	if raw := q.Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 || size > nftindexer.DefaultPageSize {
			return nil, errors.BadRequestf("pageSize must be between 1 and %d", nftindexer.DefaultPageSize)
		}
		opts.PageSize = size
	}
	if filters, ok := q["excludeFilters"]; ok {
		opts.ExcludeFilters = append([]string{}, splitList(filters)...)
	}
	return h.deps.Indexer.NftsForOwner(r.Context(), h.chainParam(q, "chain", "network"), owner, opts)
}

type ownersResponse struct {
	Contract   domain.Address `json:"contractAddress"`
	Chain      domain.Chain   `json:"chain"`
	Owners     []string       `json:"owners"`
	TotalCount int            `json:"totalCount"`
}

func (h *handlers) ownersForContract(r *http.Request) (any, error) {
	contract, err := addressParam(r, "contractAddress", "contract")
	if err != nil {
		return nil, err
	}
	chain := h.chainParam(r.URL.Query(), "chain", "network")
	owners, err := h.deps.Indexer.OwnersForContract(r.Context(), chain, contract)
	if err != nil {
		return nil, err
	}
	return ownersResponse{
		Contract:   contract,
		Chain:      chain,
		Owners:     owners.SortedValues(),
		TotalCount: owners.Size(),
	}, nil
}

type transfersRequest struct {
	Chain     string   `json:"chain"`
	Addresses []string `json:"addresses"`
}

func (h *handlers) assetTransfers(r *http.Request) (any, error) {
	var req transfersRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	addrs := domain.NormalizeAddresses(req.Addresses)
	if len(addrs) == 0 {
		return nil, errors.BadRequestf("at least one valid address is required")
	}
	chain := h.chainParam(map[string][]string{"chain": {req.Chain}}, "chain")
	return h.deps.Indexer.AssetTransfers(r.Context(), chain, addrs)
}

func (h *handlers) nftsMultichain(r *http.Request) (any, error) {
	q := r.URL.Query()
	owners := domain.NormalizeAddresses(splitList(q["owners"]))
	if len(owners) == 0 {
		return nil, errors.BadRequestf("owners is required")
	}
	rawChains := splitList(q["chains"])
	if len(rawChains) == 0 {
		rawChains = []string{string(domain.ChainEthereum)}
	}
	seen := set.NewStrings()
	var chains []domain.Chain
	for _, raw := range rawChains {
		chain := h.chainParam(map[string][]string{"chain": {raw}}, "chain")
		if !seen.Contains(string(chain)) {
			seen.Add(string(chain))
			chains = append(chains, chain)
		}
	}
	maxPages := defaultNftPages
	if raw := q.Get("maxPages"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxMultichain {
			return nil, errors.BadRequestf("maxPages must be between 1 and %d", maxMultichain)
		}
		maxPages = n
	}
	return h.deps.Indexer.NftsAcrossChains(r.Context(), chains, owners, maxPages)
}

func (h *handlers) zapper(w http.ResponseWriter, r *http.Request) {
	if h.deps.Portfolio == nil || !h.deps.Portfolio.Configured() {
		h.fail(w, r, errors.Annotate(ErrNotConfigured, "portfolio api"), "")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		h.fail(w, r, errors.BadRequestf("reading body: %v", err), "")
		return
	}
	out, err := h.deps.Portfolio.Query(r.Context(), body)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *handlers) collectionFriends(w http.ResponseWriter, r *http.Request) {
	if h.deps.Friends == nil {
		h.fail(w, r, errors.Annotate(ErrNotConfigured, "collection friends"), "")
		return
	}
	q, err := h.friendsQuery(r)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	res, err := h.deps.Friends.CollectionFriends(r.Context(), q)
	if err != nil {
		h.fail(w, r, err, "Collection")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *handlers) friendsQuery(r *http.Request) (friends.Query, error) {
	values := r.URL.Query()
	contract, err := addressParam(r, "contractAddress", "contract")
	if err != nil {
		return friends.Query{}, err
	}
	rawFID := strings.TrimSpace(values.Get("fid"))
	if rawFID == "" {
		return friends.Query{}, errors.BadRequestf("fid is required")
	}
	fid, err := domain.ParseFID(rawFID)
	if err != nil {
		return friends.Query{}, errors.BadRequestf("invalid fid %q", rawFID)
	}
	limit := friends.DefaultLimit
	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return friends.Query{}, errors.BadRequestf("invalid limit %q", raw)
		}
		limit = min(n, friends.MaxLimit)
	}
	return friends.Query{
		FID:      fid,
		Chain:    h.chainParam(values, "network", "chain"),
		Contract: contract,
		Limit:    limit,
	}, nil
}

func (h *handlers) imageProxy(w http.ResponseWriter, r *http.Request) {
	if h.deps.Images == nil {
		h.fail(w, r, errors.Annotate(ErrNotConfigured, "image proxy"), "")
		return
	}
	h.deps.Images.ServeHTTP(w, r)
}

// allInOne dispatches on action. collectionFriends never reaches here; the
// precedence middleware takes it first.
func (h *handlers) allInOne(w http.ResponseWriter, r *http.Request) {
	switch action := r.URL.Query().Get("action"); action {
	case "farcasterProfile", "profile":
		h.profile(w, r)
	case "health":
		h.health(w, r)
	case "":
		h.fail(w, r, errors.BadRequestf("action is required"), "")
	default:
		h.fail(w, r, errors.BadRequestf("unknown action %q", action), "")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errors.BadRequestf("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if err == io.EOF {
			return errors.BadRequestf("request body is required")
		}
		return errors.BadRequestf("invalid JSON body: %v", err)
	}
	return nil
}

// splitList flattens repeated and comma separated query values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
