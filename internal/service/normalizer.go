package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/juju/errors"

	"github.com/vanshika/nftgateway/internal/domain"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 500
	maxFolderItems       = 1000
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	tokenIDRegex    = regexp.MustCompile(`^(0x[0-9a-fA-F]+|[0-9]+)$`)
)

// sanitizeString collapses whitespace and trims the result.
func sanitizeString(value string) string {
	value = whitespaceRegex.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

func normalizeName(name string) (string, error) {
	name = sanitizeString(name)
	if name == "" {
		return "", errors.NotValidf("empty folder name")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", errors.NotValidf("folder name longer than %d characters", maxNameLength)
	}
	return name, nil
}

func normalizeDescription(desc string) (string, error) {
	desc = sanitizeString(desc)
	if utf8.RuneCountInString(desc) > maxDescriptionLength {
		return "", errors.NotValidf("description longer than %d characters", maxDescriptionLength)
	}
	return desc, nil
}

// normalizeItem folds chain aliases, validates the contract and keeps the
// token id in its submitted decimal or hex form.
func normalizeItem(in ItemInput) (domain.FolderItem, error) {
	chain, ok := domain.ParseChain(in.Chain)
	if !ok {
		return domain.FolderItem{}, errors.NotValidf("chain %q", in.Chain)
	}
	raw := in.Contract
	if raw == "" {
		raw = in.ContractAddress
	}
	contract, err := domain.ParseAddress(raw)
	if err != nil {
		return domain.FolderItem{}, err
	}
	tokenID := strings.TrimSpace(in.TokenID)
	if !tokenIDRegex.MatchString(tokenID) {
		return domain.FolderItem{}, errors.NotValidf("token id %q", in.TokenID)
	}
	return domain.FolderItem{Chain: chain, Contract: contract, TokenID: strings.ToLower(tokenID)}, nil
}

// mergeItems appends inputs to existing, skipping duplicates by (chain, contract, tokenId).
func mergeItems(existing []domain.FolderItem, inputs []ItemInput, stamp func(*domain.FolderItem)) ([]domain.FolderItem, error) {
	seen := make(map[string]struct{}, len(existing)+len(inputs))
	out := make([]domain.FolderItem, 0, len(existing)+len(inputs))
	for _, item := range existing {
		seen[item.Key()] = struct{}{}
		out = append(out, item)
	}
	for _, in := range inputs {
		item, err := normalizeItem(in)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[item.Key()]; dup {
			continue
		}
		seen[item.Key()] = struct{}{}
		stamp(&item)
		out = append(out, item)
	}
	if len(out) > maxFolderItems {
		return nil, errors.NotValidf("folder with more than %d items", maxFolderItems)
	}
	return out, nil
}
