package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/crewdesk/crewdesk/internal/agent"
	"github.com/crewdesk/crewdesk/internal/thread"
)

var (
	chatEmployeeID  string
	chatDisplayName string
	chatJobTitle    string
	chatRole        string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant from the terminal",
	Long: "Interactive terminal session. When the assistant proposes a data change " +
		"you are asked to approve or reject it inline.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.Close()

		actor := thread.Actor{
			EmployeeID:  chatEmployeeID,
			DisplayName: chatDisplayName,
			JobTitle:    chatJobTitle,
			Role:        chatRole,
		}
		color.Cyan("CrewDesk chat as %s (%s). Type 'exit' to quit.", actor.DisplayName, actor.EmployeeID)

		scanner := bufio.NewScanner(os.Stdin)
		for {
			color.New(color.FgGreen).Print("you> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				return nil
			}

			res, err := app.orch.Query(cmd.Context(), agent.Request{
				ThreadID: actor.EmployeeID,
				Actor:    actor,
				Query:    line,
			})
			if err != nil {
				color.Red("error: %v", err)
				continue
			}
			for res.Pending {
				color.Yellow("approval needed: %s", res.Explanation)
				color.New(color.FgGreen).Print("approve? [y/N/feedback]> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				res, err = app.orch.Resume(cmd.Context(), actor.EmployeeID, decisionFrom(scanner.Text()))
				if err != nil {
					color.Red("error: %v", err)
					break
				}
			}
			if res != nil && res.Answer != "" {
				fmt.Println(res.Answer)
			}
		}
	},
}

// decisionFrom maps terminal input to a decision: bare y/n answers become a
// structured flag, anything longer is free-text feedback for the classifier.
func decisionFrom(input string) agent.Decision {
	in := strings.ToLower(strings.TrimSpace(input))
	switch in {
	case "y", "yes":
		approved := true
		return agent.Decision{Approved: &approved}
	case "", "n", "no":
		approved := false
		return agent.Decision{Approved: &approved}
	default:
		return agent.Decision{Feedback: input}
	}
}

func init() {
	chatCmd.Flags().StringVar(&chatEmployeeID, "employee", "E-001", "employee id to chat as")
	chatCmd.Flags().StringVar(&chatDisplayName, "name", "Maria Lindqvist", "display name")
	chatCmd.Flags().StringVar(&chatJobTitle, "title", "Software Engineer", "job title")
	chatCmd.Flags().StringVar(&chatRole, "role", "employee", "access role (employee, hr, admin)")
}
