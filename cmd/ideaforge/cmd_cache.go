package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the response cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached workflow results and agent responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeCache, err := buildCache()
		if err != nil {
			return err
		}
		defer closeCache()
		if err := c.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("cache cleared")
		return nil
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <pattern>",
	Short: "Remove cached entries matching a glob pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeCache, err := buildCache()
		if err != nil {
			return err
		}
		defer closeCache()
		return c.Invalidate(cmd.Context(), args[0])
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd, cacheInvalidateCmd)
	rootCmd.AddCommand(cacheCmd)
}
