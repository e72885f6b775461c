package main

import (
	"context"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/spf13/cobra"

	"github.com/elrafoon/ptnet-mgr/internal/cliout"
	"github.com/elrafoon/ptnet-mgr/internal/model"
	"github.com/elrafoon/ptnet-mgr/internal/store"
)

func newNodesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "Inspect and manage the node store",
	}
	cmd.AddCommand(newNodesListCmd())
	cmd.AddCommand(newNodesGoalCmd())
	return cmd
}

func newNodesListCmd() *cobra.Command {
	var storePath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNodesList(cmd, storePath)
		},
	}
	cmd.Flags().StringVar(&storePath, "store", "ptnet-mgr.redb", "path to the node store")
	return cmd
}

func runNodesList(cmd *cobra.Command, storePath string) error {
	st, err := store.Open(badgerdb.DefaultOptions(storePath).WithReadOnly(true))
	if err != nil {
		return fmt.Errorf("nodes list: open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	ctx := context.Background()
	addrs, err := st.List(ctx)
	if err != nil {
		return fmt.Errorf("nodes list: %w", err)
	}
	recs, err := st.LoadMany(ctx, addrs)
	if err != nil {
		return fmt.Errorf("nodes list: load: %w", err)
	}

	table := cliout.NewTableData("ADDRESS", "FW_STATE", "FW_VERSION")
	for _, rec := range recs {
		fwState, fwVersion := "-", "-"
		if rec.DeviceStatus != nil {
			fwState = rec.DeviceStatus.FWState.String()
			fwVersion = rec.DeviceStatus.FWVersion.String()
		}
		table.AddRow(rec.Address.String(), fwState, fwVersion)
	}
	cliout.PrintTable(cmd.OutOrStdout(), table)
	return nil
}

func newNodesGoalCmd() *cobra.Command {
	var storePath, goalVersion string
	cmd := &cobra.Command{
		Use:   "goal <address> <none|keep-current|approve-update-to|update-to>",
		Short: "Write a node's fwu_state goal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNodesGoal(storePath, args[0], args[1], goalVersion)
		},
	}
	cmd.Flags().StringVar(&storePath, "store", "ptnet-mgr.redb", "path to the node store")
	cmd.Flags().StringVar(&goalVersion, "version", "", "firmware version (required for approve-update-to/update-to), e.g. 1.2.3")
	return cmd
}

func runNodesGoal(storePath, addrArg, goalArg, versionArg string) error {
	addr, err := model.ParseAddress(addrArg)
	if err != nil {
		return fmt.Errorf("nodes goal: %w", err)
	}
	goal, err := parseGoal(goalArg, versionArg)
	if err != nil {
		return fmt.Errorf("nodes goal: %w", err)
	}

	st, err := store.Open(badgerdb.DefaultOptions(storePath))
	if err != nil {
		return fmt.Errorf("nodes goal: open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	if err := st.SetGoal(context.Background(), addr, goal); err != nil {
		return fmt.Errorf("nodes goal: %w", err)
	}
	return nil
}

func parseGoal(kind, version string) (model.Goal, error) {
	switch kind {
	case "none":
		return model.Goal{Kind: model.GoalNone}, nil
	case "keep-current":
		return model.Goal{Kind: model.GoalKeepCurrent}, nil
	case "approve-update-to":
		v, err := model.ParseFWVersion(version)
		if err != nil {
			return model.Goal{}, fmt.Errorf("--version: %w", err)
		}
		return model.Goal{Kind: model.GoalApproveUpdateTo, Version: v}, nil
	case "update-to":
		v, err := model.ParseFWVersion(version)
		if err != nil {
			return model.Goal{}, fmt.Errorf("--version: %w", err)
		}
		return model.Goal{Kind: model.GoalUpdateTo, Version: v}, nil
	default:
		return model.Goal{}, fmt.Errorf("unknown goal %q", kind)
	}
}
