package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"metacog/internal/intervention"
)

// respondCmd records a user response to a surfaced intervention
var respondCmd = &cobra.Command{
	Use:   "respond [user] [intervention-id] [action]",
	Short: "Record a user response (dismiss|skip|act|override)",
	Long: `Feeds the presentation layer's callback into the suppression tracker.

Three dismissals of the same intervention open the suppression window;
a single act or override clears it.

Example:
  metacog respond u-1042 mr_verify_prompt dismiss`,
	Args: cobra.ExactArgs(3),
	RunE: runRespond,
}

func runRespond(cmd *cobra.Command, args []string) error {
	userID, mrID := args[0], args[1]
	action := intervention.Action(args[2])
	if !action.Valid() {
		return fmt.Errorf("unknown action %q (want dismiss, skip, act, or override)", args[2])
	}

	_, ev, err := loadEvaluator()
	if err != nil {
		return err
	}
	defer ev.Close()

	st, err := ev.RecordResponse(userID, mrID, action)
	if err != nil {
		return err
	}
	logger.Info("Response recorded",
		zap.String("user", userID),
		zap.String("mr", mrID),
		zap.String("action", string(action)),
		zap.Int("dismissals", st.Dismissals))
	return printJSON(st)
}
