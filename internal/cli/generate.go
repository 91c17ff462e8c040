package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/moodgraph/internal/app"
	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
	"github.com/ewilliams-labs/moodgraph/internal/core/services"
)

type generateOptions struct {
	mood        string
	name        string
	publish     bool
	requireFull bool
}

func newGenerateCommand(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a playlist for a mood",
		Long: `Generates a ten-track playlist for a mood. Without --mood the moods are listed
and one is read from standard input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.mood, "mood", "m", "", "mood (happy, sad, chill, high-energy, surprise me)")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", `playlist name (default "<Mood> Mood Playlist")`)
	cmd.Flags().BoolVarP(&opts.publish, "publish", "p", false, "save the playlist to Spotify")
	cmd.Flags().BoolVar(&opts.requireFull, "require-full", false, "fail when fewer than ten tracks match")
	return cmd
}

func runGenerate(cmd *cobra.Command, root *rootOptions, opts *generateOptions) error {
	mood := domain.ParseMood(opts.mood)
	if mood == "" {
		picked, err := promptMood(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		mood = picked
	}
	name := opts.name
	if name == "" {
		name = cliPlaylistName(mood)
	}

	return root.withApp(cmd.Context(), func(a *app.App) error {
		pl, err := a.Orchestrator.GeneratePlaylist(cmd.Context(), services.GenerateRequest{
			Mood:        string(mood),
			Name:        name,
			Publish:     opts.publish,
			RequireFull: opts.requireFull,
		})
		if err != nil {
			return err
		}
		tracks, err := a.Orchestrator.Lookup(cmd.Context(), pl.TrackIDs)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if root.jsonOut {
			return json.NewEncoder(out).Encode(struct {
				domain.Playlist
				Tracks []domain.Track `json:"tracks"`
			}{pl, tracks})
		}
		fmt.Fprintf(out, "%s (%d tracks)\n", pl.Name, len(pl.TrackIDs))
		for i, t := range tracks {
			fmt.Fprintf(out, "%2d. %s - %s\n", i+1, t.Name, t.Artist)
		}
		if pl.ExternalID != "" {
			fmt.Fprintf(out, "Saved to Spotify as %s\n", pl.ExternalID)
		}
		return nil
	})
}

// cliPlaylistName capitalizes the first letter of the mood: "Chill Mood Playlist".
func cliPlaylistName(m domain.Mood) string {
	s := string(m)
	if s == "" {
		return "Mood Playlist"
	}
	return strings.ToUpper(s[:1]) + s[1:] + " Mood Playlist"
}

func printMoodMenu(w io.Writer) {
	for i, m := range domain.KnownMoods {
		fmt.Fprintf(w, "%d. %s\n", i+1, m)
	}
}

// moodByNumber resolves a 1-based menu position.
func moodByNumber(n int) (domain.Mood, error) {
	if n < 1 || n > len(domain.KnownMoods) {
		return "", fmt.Errorf("invalid choice %d: pick 1-%d", n, len(domain.KnownMoods))
	}
	return domain.KnownMoods[n-1], nil
}

// promptMood reads a menu number or a mood name.
func promptMood(in io.Reader, out io.Writer) (domain.Mood, error) {
	fmt.Fprintln(out, "How are you feeling?")
	printMoodMenu(out)
	fmt.Fprint(out, "Enter the number of your mood: ")

	sc := bufio.NewScanner(in)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("read mood: %w", err)
		}
		return "", fmt.Errorf("no mood given")
	}
	answer := strings.TrimSpace(sc.Text())
	if n, err := strconv.Atoi(answer); err == nil {
		return moodByNumber(n)
	}
	mood := domain.ParseMood(answer)
	if mood == "" {
		return "", fmt.Errorf("no mood given")
	}
	return mood, nil
}
