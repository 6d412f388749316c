package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"offs-core/block"
	"offs-core/engine/errs"
)

func poolCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "pool"}
	cmd.AddCommand(poolListCmd())
	cmd.AddCommand(poolStatsCmd())
	cmd.AddCommand(poolBootstrapCmd())
	cmd.AddCommand(poolDeleteCmd())
	return cmd
}

func poolListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list known pools",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := loadEngine(cmd)
			if err != nil {
				return err
			}
			pools, err := eng.ListPools()
			if err != nil {
				return err
			}
			for _, p := range pools {
				fmt.Println(p)
			}
			return nil
		},
	}
}

func poolStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [poolId]",
		Short: "show block count and byte totals for a pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := loadEngine(cmd)
			if err != nil {
				return err
			}
			stats, err := eng.PoolStats(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("pool=%s blocks=%d bytes=%d created=%s lastAccessed=%s\n",
				stats.PoolId, stats.BlockCount, stats.TotalBytes,
				stats.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				stats.LastAccessedAt.Format("2006-01-02T15:04:05Z07:00"))
			return nil
		},
	}
}

func poolBootstrapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap [poolId]",
		Short: "fill a pool with fresh random blocks (typically the whitener pool)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := loadEngine(cmd)
			if err != nil {
				return err
			}
			n, _ := cmd.Flags().GetInt("count")
			size, _ := cmd.Flags().GetInt("size")
			if err := eng.BootstrapPool(args[0], block.NextSizeAbove(size), n); err != nil {
				return err
			}
			fmt.Printf("bootstrapped %d blocks into pool %s\n", n, args[0])
			return nil
		},
	}
	cmd.Flags().Int("count", 64, "number of blocks to generate")
	cmd.Flags().Int("size", int(block.SizeTiny), "minimum block size in bytes")
	return cmd
}

func poolDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete [poolId]",
		Short: "delete a pool after checking no CBL in another pool depends on it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := loadEngine(cmd)
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")
			if err := eng.DeletePool(args[0], force); err != nil {
				var depErr *errs.PoolDeletionError
				if errors.As(err, &depErr) {
					return fmt.Errorf("%w (rerun with --force to delete anyway)", err)
				}
				return err
			}
			fmt.Printf("deleted pool %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "delete even if other pools depend on this one")
	return cmd
}
