package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/courtvision/prediction-api/internal/models"
)

var analyzeForce bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <match-id>",
	Short: "Run a full analysis for one match and print the prediction",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVarP(&analyzeForce, "force", "f", false, "Re-run even when a stored prediction exists")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	a.start(ctx)

	pred, err := a.orchestrator.AnalyzeByID(ctx, args[0], analyzeForce)
	if err != nil {
		return err
	}

	p1, p2 := args[0], ""
	if match, err := a.store.GetMatchDetail(ctx, pred.MatchID); err == nil && match.Player1 != nil && match.Player2 != nil {
		p1, p2 = match.Player1.Name, match.Player2.Name
	}
	printPrediction(pred, p1, p2)
	return nil
}

func printPrediction(pred *models.Prediction, p1, p2 string) {
	bold := color.New(color.Bold)
	bold.Printf("\nMatch %s", pred.MatchID)
	if p2 != "" {
		fmt.Printf("  %s vs %s", p1, p2)
	}
	fmt.Println()
	fmt.Println("─────────────────────")

	for _, f := range pred.Factors {
		fmt.Printf("%-12s %-16s %s %.2f  %s\n", f.Category, f.Agent, advantageLabel(f.Advantage), f.Confidence, f.Conclusion)
	}

	fmt.Println("─────────────────────")
	bold.Printf("Winner: %s  p=%.2f  confidence=%.2f  (%s)\n",
		pred.PredictedWinnerID, pred.WinProbability, pred.ConfidenceLevel, pred.Source)
	for _, k := range pred.KeyFactors {
		fmt.Printf("  • %s\n", k)
	}
	if pred.Reasoning != "" {
		fmt.Println(color.HiBlackString(pred.Reasoning))
	}
}

func advantageLabel(a models.Advantage) string {
	switch a {
	case models.AdvantagePlayer1:
		return color.GreenString("%-14s", a)
	case models.AdvantageSlightPlayer1:
		return color.HiGreenString("%-14s", a)
	case models.AdvantagePlayer2:
		return color.RedString("%-14s", a)
	case models.AdvantageSlightPlayer2:
		return color.HiRedString("%-14s", a)
	default:
		return color.YellowString("%-14s", a)
	}
}
