package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/crev/internal/tui"
)

var tuiMarkdown bool

var tuiCmd = &cobra.Command{
	Use:   "tui [file]",
	Short: "Interactive editor with live review results",
	Long: `Open an editor pre-filled with the file (or a sample function) and
review it with Ctrl+S.

Keys: Ctrl+S review, Ctrl+Y copy report, Tab switch pane, Esc quit.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := readCode(args)
		if err != nil {
			return err
		}
		ctrl, err := newController()
		if err != nil {
			return err
		}

		m := tui.New(ctrl, tui.Options{
			Code:     code,
			Markdown: viper.GetBool("render.markdown"),
			Context:  cmd.Context(),
		})
		p := tea.NewProgram(m, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("tui run failed: %w", err)
		}
		return nil
	},
}

func init() {
	tuiCmd.Flags().BoolVar(&tuiMarkdown, "markdown", false, "Render the report as markdown")
	_ = viper.BindPFlag("render.markdown", tuiCmd.Flags().Lookup("markdown"))
	rootCmd.AddCommand(tuiCmd)
}
