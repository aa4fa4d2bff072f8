package tool

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tatsuya4559/iambrowser/pkg/toolchain"
)

var lockCmd = &cobra.Command{
	Use:   "lock <spec file> <lock file>",
	Short: "Pins the tools listed in a spec file",
	Long: `Resolves every requirement in the given spec file (one "module @constraint"
per line) to its highest matching release and writes the result to the lock
file. The output only changes when the spec or the available versions do.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := toolchain.Lock(cmd.Context(), toolchain.GoTool{}, args[0], args[1])
		if err != nil {
			return eris.Wrapf(err, "failed to lock %s", args[0])
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(lockCmd)
}
