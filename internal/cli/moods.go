package cli

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
)

func newMoodsCommand(root *rootOptions) *cobra.Command {
	var pick int
	cmd := &cobra.Command{
		Use:   "moods",
		Short: "List the known moods",
		Long:  `Lists the known moods as a numbered menu. --pick prints the mood at a menu position.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if pick != 0 {
				m, err := moodByNumber(pick)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, m)
				return nil
			}
			if root.jsonOut {
				return json.NewEncoder(out).Encode(map[string][]domain.Mood{"moods": domain.KnownMoods})
			}
			printMoodMenu(out)
			return nil
		},
	}
	cmd.Flags().IntVar(&pick, "pick", 0, "print the mood at this menu number")
	return cmd
}
