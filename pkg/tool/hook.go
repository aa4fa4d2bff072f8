package tool

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tatsuya4559/iambrowser/pkg/precommit"
)

var installHookCmd = &cobra.Command{
	Use:   "install-hook",
	Short: "Installs the pre-commit hook",
	Long: `Renders ` + precommit.ConfigName + ` into a shell script and installs it as
the local pre-commit hook. The hooks run in declaration order and the first
failure aborts the commit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		gitDir, err := precommit.FindGitDir(".")
		if err != nil {
			return err
		}

		cfgPath := filepath.Join(filepath.Dir(gitDir), precommit.ConfigName)
		return precommit.Install(cfgPath, gitDir)
	},
}

func init() {
	rootCmd.AddCommand(installHookCmd)
}
