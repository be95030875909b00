package cmd

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	askSessionID string
	askLanguage  string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question against the knowledge base",
	Long: `Runs one retrieval-augmented question through the pipeline and prints
the answer with its sources. Pass --session to continue a previous
conversation; otherwise a fresh session is used.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfgFile)
		if err != nil {
			return err
		}
		defer a.close()

		sessionID := askSessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		question := strings.Join(args, " ")

		answer, err := a.pipeline.Answer(cmd.Context(), sessionID, question, askLanguage)
		if err != nil {
			return err
		}

		fmt.Println(answer.Text)
		if len(answer.Sources) > 0 {
			fmt.Println()
			fmt.Println("Sources:")
			for _, src := range answer.Sources {
				fmt.Printf("  - %s\n", src)
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askSessionID, "session", "", "session ID to continue a conversation")
	askCmd.Flags().StringVar(&askLanguage, "language", "", "answer language (detected from the question when empty)")
	rootCmd.AddCommand(askCmd)
}
