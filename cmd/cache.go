package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the download cache",
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the cache directory",
	Args:  cobra.NoArgs,
	RunE:  runCachePath,
}

var cacheLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List cached files",
	Args:  cobra.NoArgs,
	RunE:  runCacheLs,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [file]...",
	Short: "Remove cached files (all of them when none is named)",
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cachePathCmd, cacheLsCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCachePath(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cfg.CacheDir)
	return nil
}

func runCacheLs(cmd *cobra.Command, _ []string) error {
	_, ret, _, err := newLoader()
	if err != nil {
		return err
	}
	entries, err := ret.Entries()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		printSkip("", fmt.Sprintf("cache is empty: %s", ret.CacheDir()))
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	var total int64
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, humanBytes(e.Size), e.ModTime.Format("2006-01-02 15:04"))
		total += e.Size
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	printInfo("", fmt.Sprintf("%d file(s), %s in %s", len(entries), humanBytes(total), ret.CacheDir()))
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	_, ret, _, err := newLoader()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		if err := ret.Clear(cmd.Context()); err != nil {
			return fmt.Errorf("cannot clear cache: %w", err)
		}
		printOK("", fmt.Sprintf("Cache cleared: %s", ret.CacheDir()))
		return nil
	}
	for _, name := range args {
		_, ok, err := ret.CachedPath(name)
		if err != nil {
			return err
		}
		if !ok {
			printMiss(name, "not cached")
			continue
		}
		if err := ret.Invalidate(cmd.Context(), name); err != nil {
			return err
		}
		printOK(name, "removed")
	}
	return nil
}
