package main

import (
	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "newsblend"}

	root.AddCommand(serveCMD(), migrateCMD(), seedCMD())
	_ = root.Execute()
}
