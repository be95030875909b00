package config

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and saves the
// resulting config to the given path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to personarag! Let's configure your knowledge base.")
	fmt.Println()

	cfg := DefaultConfig()

	modelPrompt := promptui.Select{
		Label: "Select chat model",
		Items: []string{"gpt-4o-mini", "gpt-4o"},
	}
	_, model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model selection: %w", err)
	}
	cfg.Providers.Model = model

	embeddingPrompt := promptui.Select{
		Label: "Select embedding model",
		Items: []string{"text-embedding-3-small", "text-embedding-3-large"},
	}
	_, embeddingModel, err := embeddingPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding model selection: %w", err)
	}
	cfg.Providers.EmbeddingModel = embeddingModel

	docsPrompt := promptui.Prompt{
		Label:   "Local document directory",
		Default: cfg.Sources.LocalDir,
	}
	localDir, err := docsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("document directory: %w", err)
	}
	cfg.Sources.LocalDir = localDir

	langPrompt := promptui.Prompt{
		Label:   "Knowledge-base languages (comma-separated ISO codes)",
		Default: strings.Join(cfg.Language.Supported, ","),
	}
	langStr, err := langPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("languages: %w", err)
	}
	cfg.Language.Supported = splitAndTrim(langStr)
	if len(cfg.Language.Supported) > 0 {
		cfg.Language.Default = cfg.Language.Supported[0]
	}

	remotePrompt := promptui.Prompt{
		Label:   "Remote listing URL (leave blank for local-only)",
		Default: "",
	}
	listURL, err := remotePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("remote listing url: %w", err)
	}
	cfg.Sources.ListURL = strings.TrimSpace(listURL)

	if cfg.Sources.ListURL != "" {
		cdnPrompt := promptui.Prompt{
			Label: "CDN base URL for remote files",
		}
		cdnURL, err := cdnPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("cdn url: %w", err)
		}
		cfg.Sources.CDNURL = strings.TrimSpace(cdnURL)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("resulting config is invalid: %w", err)
	}
	if err := cfg.Save(path); err != nil {
		return nil, err
	}

	fmt.Println()
	fmt.Printf("Configuration written to %s\n", path)
	fmt.Printf("Set your API key in the %s environment variable before running `personarag serve`.\n", cfg.Providers.APIKeyEnv)
	return cfg, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
