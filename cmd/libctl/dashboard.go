package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/5w1tchy/library-client/internal/store/stats"
)

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show catalog and circulation totals (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.needAdmin(); err != nil {
				return err
			}
			d, err := stats.New(a.deps).Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			return a.renderFields(d, [][2]string{
				{"Active books", fmt.Sprint(d.Books)},
				{"Borrowed", fmt.Sprint(d.Borrowed)},
				{"Overdue", fmt.Sprint(d.Overdue)},
			})
		},
	}
}
