package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/weaverai/weaver/internal/config"
)

// runVersion prints build details and the effective configuration summary.
func runVersion() error {
	fmt.Printf("weaver %s\n", AppVersion)
	fmt.Printf("  build time: %s\n", BuildTime)
	fmt.Printf("  git commit: %s\n", GitCommit)
	fmt.Printf("  go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)

	cfg, err := config.Load()
	if err != nil {
		// Version output should not fail on a broken config file.
		fmt.Printf("  config:     unavailable (%v)\n", err)
		return nil
	}

	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("  model:      %s\n", cfg.FullModelName())
	fmt.Printf("  embedder:   %s\n", cfg.FullEmbedderName())
	fmt.Printf("  data dir:   %s\n", cfg.DataDir)
	fmt.Printf("  listen:     %s\n", cfg.ListenAddr())
	fmt.Printf("  gemini key: %s\n", keyStatus())
	return nil
}

func keyStatus() string {
	if os.Getenv("GOOGLE_API_KEY") != "" || os.Getenv("GEMINI_API_KEY") != "" {
		return "configured"
	}
	return "not set"
}
