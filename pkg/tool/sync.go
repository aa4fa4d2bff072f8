package tool

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tatsuya4559/iambrowser/pkg/precommit"
	"github.com/tatsuya4559/iambrowser/pkg/toolchain"
)

var syncCmd = &cobra.Command{
	Use:   "sync [lock files...]",
	Short: "Installs the pinned tool set",
	Long: `Installs every tool pinned in the given lock files (tools.lock and
dev-tools.lock by default) into the workspace .tools directory and removes
any binary there that no lock file mentions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		gitDir, err := precommit.FindGitDir(".")
		if err != nil {
			return err
		}
		projectRoot := filepath.Dir(gitDir)

		lockFiles := args
		if len(lockFiles) == 0 {
			lockFiles = []string{
				filepath.Join(projectRoot, "tools.lock"),
				filepath.Join(projectRoot, "dev-tools.lock"),
			}
		}

		binDir := filepath.Join(projectRoot, ".tools")
		err = toolchain.Sync(cmd.Context(), toolchain.GoTool{}, lockFiles, binDir)
		if err != nil {
			return eris.Wrap(err, "failed to sync tools")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
