package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/j-veylop/ai-quota-bar/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print detailed version information including Git commit and build date.`,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "AI Quota Bar %s\n", version.GetVersion())
		fmt.Fprintf(w, "Git Commit: %s\n", version.GetCommit())
		fmt.Fprintf(w, "Build Date: %s\n", version.GetDate())
		fmt.Fprintf(w, "Go Version: %s\n", runtime.Version())
		fmt.Fprintf(w, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
