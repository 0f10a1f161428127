// Command geminikey stores a provider credential in integration_tokens so
// workers started without the environment variable can still reach it.
//
//	geminikey -key AIza...                  store the Gemini key
//	geminikey -provider voice_clone         store $VOICE_CLONE_URL
//	geminikey -list                         show which providers have a token
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"neomentor/internal/adapter/repo"
	"neomentor/internal/config"
	"neomentor/internal/infra"
	"neomentor/internal/infra/credentials"
)

func main() {
	var (
		keyFlag      string
		providerFlag string
		listFlag     bool
	)
	flag.StringVar(&keyFlag, "key", "", "token to store (defaults to the provider's environment variable)")
	flag.StringVar(&providerFlag, "provider", credentials.Gemini.Name, "gemini, openai or voice_clone")
	flag.BoolVar(&listFlag, "list", false, "list stored providers and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fail("config: %v", err)
	}
	if err := cfg.RequireDatabase(); err != nil {
		fail("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		fail("database: %v", err)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "geminikey").Logger()
	runner := infra.NewSQLRunner(pool, logger)
	if err := repo.EnsureSchema(ctx, runner); err != nil {
		fail("schema: %v", err)
	}
	store := credentials.NewStore(runner)

	if listFlag {
		stored, err := store.List(ctx)
		if err != nil {
			fail("%v", err)
		}
		for _, st := range stored {
			fmt.Printf("%-12s updated %s  %v\n", st.Provider, st.UpdatedAt.Format(time.RFC3339), st.Properties)
		}
		return
	}

	provider, err := credentials.Lookup(providerFlag)
	if err != nil {
		fail("%v", err)
	}
	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv(provider.EnvVar))
	}
	if key == "" {
		fail("a token is required via -key or %s", provider.EnvVar)
	}
	if err := store.Save(ctx, provider, key, map[string]any{"source": "cli"}); err != nil {
		fail("%v", err)
	}
	fmt.Printf("%s token stored\n", provider.Name)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
