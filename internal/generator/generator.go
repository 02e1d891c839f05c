// Package generator synthesizes folder seed records for local development
// and load testing of the folder store.
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/vanshika/nftgateway/internal/domain"
	"github.com/vanshika/nftgateway/internal/service"
)

// Dataset is the payload written to folders.json and read by import-folders.
type Dataset struct {
	Records []service.ImportRecord `json:"records"`
}

// Generator produces folder records with a configurable overlap of tokens
// between owners.
type Generator struct {
	cfg    Config
	rand   *rand.Rand
	chains []domain.Chain
	pool   []service.ItemInput
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	defaults := DefaultConfig()
	if cfg.NumOwners <= 0 {
		cfg.NumOwners = defaults.NumOwners
	}
	if cfg.FoldersPerOwner <= 0 {
		cfg.FoldersPerOwner = defaults.FoldersPerOwner
	}
	if cfg.MaxItemsPerFolder <= 0 {
		cfg.MaxItemsPerFolder = defaults.MaxItemsPerFolder
	}
	cfg.SharedTokenChance = clamp(cfg.SharedTokenChance)
	cfg.PublicFolderChance = clamp(cfg.PublicFolderChance)
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:    cfg,
		rand:   rand.New(rand.NewSource(cfg.Seed)),
		chains: []domain.Chain{domain.ChainEthereum, domain.ChainBase, domain.ChainPolygon, domain.ChainZora},
	}
}

// Generate synthesises folder records. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	records := make([]service.ImportRecord, 0, g.cfg.NumOwners*g.cfg.FoldersPerOwner)
	for o := 0; o < g.cfg.NumOwners; o++ {
		owner := fmt.Sprintf("user-%04d", o+1)
		for f := 0; f < g.cfg.FoldersPerOwner; f++ {
			if err := ctx.Err(); err != nil {
				return Dataset{}, err
			}
			records = append(records, service.ImportRecord{
				Owner: owner,
				Folder: service.FolderInput{
					Name:     g.folderName(f),
					IsPublic: g.rand.Float64() < g.cfg.PublicFolderChance,
					Items:    g.items(),
				},
			})
		}
	}
	return Dataset{Records: records}, nil
}

func (g *Generator) items() []service.ItemInput {
	n := 1 + g.rand.Intn(g.cfg.MaxItemsPerFolder)
	items := make([]service.ItemInput, 0, n)
	for i := 0; i < n; i++ {
		if len(g.pool) > 0 && g.rand.Float64() < g.cfg.SharedTokenChance {
			items = append(items, g.pool[g.rand.Intn(len(g.pool))])
			continue
		}
		item := service.ItemInput{
			Chain:    string(g.chains[g.rand.Intn(len(g.chains))]),
			Contract: g.randomAddress(),
			TokenID:  strconv.Itoa(g.rand.Intn(10000)),
		}
		g.pool = append(g.pool, item)
		items = append(items, item)
	}
	return items
}

func (g *Generator) randomAddress() string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 40)
	for i := range buf {
		buf[i] = hexDigits[g.rand.Intn(len(hexDigits))]
	}
	return "0x" + string(buf)
}

var folderAdjectives = []string{"Blue Chip", "Grail", "Pixel", "Generative", "Onchain", "Degen", "Cozy", "Vintage"}

func (g *Generator) folderName(i int) string {
	return fmt.Sprintf("%s #%d", folderAdjectives[g.rand.Intn(len(folderAdjectives))], i+1)
}

func clamp(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
