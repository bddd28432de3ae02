// roles.go — команда roles: имена ролей clinic API.
package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bigkaa/clinic-console/internal/clinicapi"
)

func newRolesCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "Список ролей clinic API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := o.newService()
			if err != nil {
				return err
			}

			ctx, cancel := o.context(cmd)
			defer cancel()

			roles, err := svc.ListRoles(ctx)
			if err != nil {
				return fmt.Errorf("%s", clinicapi.MessageOf(err))
			}

			out := map[string][]string{"items": roles}
			return o.encode(cmd.OutOrStdout(), out, func(w io.Writer) error {
				for _, r := range roles {
					if _, err := fmt.Fprintln(w, r); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
