package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every record and scan from the database",
	RunE:  runReset,
}

var resetYes bool

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Confirm the reset")
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		return fmt.Errorf("refusing to reset without --yes")
	}

	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	mgr, err := a.NewSession()
	if err != nil {
		return err
	}
	if err := mgr.Reset(context.Background()); err != nil {
		return err
	}
	fmt.Printf("Reset %s\n", a.Config().Database)
	return nil
}
