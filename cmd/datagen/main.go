package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vanshika/nftgateway/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		owners       = flag.Int("owners", cfg.NumOwners, "number of folder owners to generate")
		folders      = flag.Int("folders-per-owner", cfg.FoldersPerOwner, "folders generated for each owner")
		maxItems     = flag.Int("max-items", cfg.MaxItemsPerFolder, "upper bound on items per folder")
		sharedChance = flag.Float64("shared-token-chance", cfg.SharedTokenChance, "probability of reusing a token another folder holds")
		publicChance = flag.Float64("public-chance", cfg.PublicFolderChance, "probability a folder is public")
		seed         = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir    = flag.String("output-dir", "data", "directory to write folders.json")
		writeStdout  = flag.Bool("stdout", false, "write the dataset to stdout instead of a file")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gen := generator.New(generator.Config{
		NumOwners:          *owners,
		FoldersPerOwner:    *folders,
		MaxItemsPerFolder:  *maxItems,
		SharedTokenChance:  *sharedChance,
		PublicFolderChance: *publicChance,
		Seed:               *seed,
	})
	dataset, err := gen.Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := json.NewEncoder(os.Stdout).Encode(dataset); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	path, err := generator.WriteDataset(dataset, *outputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d folders into %s\n", len(dataset.Records), path)
}
