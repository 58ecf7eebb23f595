// Package main demonstrates basic usage of the shadowhorn library.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/shadowhorn/shadowhorn"
)

func main() {
	flag.Parse()

	if len(flag.Args()) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s <identifier>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example: %s alice\n", os.Args[0])
		os.Exit(1)
	}

	ctx := context.Background()
	identifier := flag.Args()[0]

	result, err := shadowhorn.Collect(ctx, identifier,
		shadowhorn.WithGitHubToken(os.Getenv("GITHUB_TOKEN")),
		shadowhorn.WithTwitterBearerToken(os.Getenv("TWITTER_BEARER_TOKEN")),
		shadowhorn.WithBreachDirectoryKey(os.Getenv("RAPIDAPI_KEY")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "collection failed: %v\n", err)
		os.Exit(1)
	}
	for platform, msg := range result.Errors {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", platform, msg)
	}

	p := shadowhorn.Correlate(result.Documents, identifier)

	fmt.Printf("Name:        %s\n", p.Name)
	fmt.Printf("Type:        %s\n", p.ProfileType)
	fmt.Printf("Location:    %s\n", p.PrimaryLocation)
	fmt.Printf("Platforms:   %v\n", p.Platforms())
	fmt.Printf("Compromised: %v\n", p.Compromised)
	fmt.Printf("Summary:     %s\n", p.Summary)
}
