package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/cinegraph"
	"github.com/siherrmann/cinegraph/helper"
	"github.com/siherrmann/cinegraph/model"
)

func main() {
	// Start a test PostgreSQL container for the cache, graph and high scores
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	// Queries go to the public Wikidata endpoints
	cg, err := cinegraph.NewWithDatabase(dbConfig, cinegraph.Options{})
	if err != nil {
		log.Fatalf("Failed to create cinegraph: %v", err)
	}
	defer cg.Close()

	ctx := context.Background()

	// Resolve two typed names
	first := cg.ResolveEntity(ctx, "Tom Hanks")
	second := cg.ResolveEntity(ctx, "Meg Ryan")
	if !first.IsFound() || !second.IsFound() {
		log.Fatalf("Failed to resolve actors: %s, %s", first.Status, second.Status)
	}
	fmt.Printf("Resolved %s (%s) and %s (%s)\n", first.Entity.Label, first.Entity.ID, second.Entity.Label, second.Entity.ID)

	// Check whether they played in the same film
	link, err := cg.FindSharedEdge(ctx, first.Entity.ID, second.Entity.ID)
	if err != nil {
		log.Fatalf("Failed to find shared film: %v", err)
	}
	if link != nil {
		fmt.Printf("Both played in %s\n", link.Title)
	}

	// Build a challenge starting at the first actor
	challenge, err := cg.GenerateChallenge(ctx, model.ChallengeOptions{Start: first.Entity})
	if err != nil {
		log.Fatalf("Failed to generate challenge: %v", err)
	}
	fmt.Printf("\nChallenge: %s -> %s\n", challenge.Start.Label, challenge.End.Label)
	for i, step := range challenge.Path {
		fmt.Printf("%d. %s -[%s]-> %s\n", i+1, step.From.Label, step.Via.Title, step.To.Label)
	}

	// Download a small graph, store it and list the hubs
	g, err := cg.DownloadGraph(ctx, 20, 50)
	if err != nil {
		log.Fatalf("Failed to download graph: %v", err)
	}
	snapshot, err := cg.SaveGraph(ctx, g)
	if err != nil {
		log.Fatalf("Failed to save graph: %v", err)
	}
	fmt.Printf("\nStored graph with %d actors (etag %s)\n", g.Metadata.ActorCount, snapshot.ETag)

	analysis, err := cg.AnalyzeGraph(g, model.AnalysisRequest{Kind: model.AnalysisHubs, TopN: 5})
	if err != nil {
		log.Fatalf("Failed to analyze graph: %v", err)
	}
	for i, hub := range analysis.Hubs {
		fmt.Printf("%d. %s with %d co-actors\n", i+1, hub.Label, hub.Degree)
	}

	stats, err := cg.CacheStats(ctx)
	if err != nil {
		log.Fatalf("Failed to read cache stats: %v", err)
	}
	fmt.Printf("\nCache: %d entries, %d hits, %d misses\n", stats.Entries, stats.Hits, stats.Misses)

	fmt.Println("\nBasic example completed successfully!")
}
