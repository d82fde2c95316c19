package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

type reviewFlags struct {
	provider string
	repo     string
	number   int
	dryRun   bool
}

func (f reviewFlags) validate() error {
	switch {
	case f.provider != "github" && f.provider != "gitlab":
		return usageError{fmt.Errorf("--provider must be github or gitlab, got %q", f.provider)}
	case f.repo == "":
		return usageError{errors.New("--repo is required")}
	case f.number < 1:
		return usageError{errors.New("--number must be a positive change request number")}
	}
	return nil
}

func newReviewCommand() *cobra.Command {
	var flags reviewFlags

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review one pull or merge request now",
		Long:  "Runs the same pipeline as a webhook delivery for a single change request. With --dry-run the comment is printed instead of posted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.validate(); err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.reviews.Run(cmd.Context(), flags.provider, flags.repo, flags.number, !flags.dryRun)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if flags.dryRun {
				fmt.Fprint(out, res.Comment.Body)
				return nil
			}
			fmt.Fprintf(out, "Posted comment %s on %s#%d\n", res.Comment.ID, flags.repo, flags.number)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.provider, "provider", "github", "Source host (github, gitlab)")
	cmd.Flags().StringVar(&flags.repo, "repo", "", "Repository as owner/name or group/subgroup/project")
	cmd.Flags().IntVar(&flags.number, "number", 0, "Pull or merge request number")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Print the comment instead of posting it")
	return cmd
}
