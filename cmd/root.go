package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "personarag",
	Short: "Personal knowledge-base chatbot with retrieval-augmented answers",
	Long: `Personarag answers natural-language questions about your personal
knowledge base. It ingests your documents (markdown, text, PDF) into a
per-language vector index and answers questions strictly from the
retrieved passages, with conversation memory per session.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".personarag.yml", "config file path")
}
