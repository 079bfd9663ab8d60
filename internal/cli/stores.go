package cli

import (
	"github.com/spf13/cobra"

	"bookapp/internal/models"
	"bookapp/internal/viewstate"
)

func (c *CLI) storesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stores",
		Short: "Browse and add bookstore locations",
	}
	cmd.AddCommand(c.storesListCommand(), c.storesAddCommand())
	return cmd
}

func (c *CLI) storesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List bookstores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := viewstate.NewMapState(cmd.Context(), c.app.Bookstores(), c.logger)
			defer s.Close()

			s.Load()
			snap := s.Snapshot()
			if snap.Status.IsError() {
				return report(cmd.OutOrStdout(), snap.Status, "")
			}
			printBookstores(cmd.OutOrStdout(), snap.Bookstores)
			return nil
		},
	}
}

func (c *CLI) storesAddCommand() *cobra.Command {
	var (
		loc                         models.BookstoreLocation
		description, website, phone string
		bookID                      int64
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a bookstore",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc.Description = models.StringPtr(description)
			loc.Website = models.StringPtr(website)
			loc.PhoneNumber = models.StringPtr(phone)
			if cmd.Flags().Changed("book") {
				loc.AssociatedBookID = &bookID
			}

			s := viewstate.NewMapState(cmd.Context(), c.app.Bookstores(), c.logger)
			defer s.Close()

			s.AddBookstore(loc)
			return report(cmd.OutOrStdout(), s.Snapshot().Status, "Bookstore added: "+loc.Name)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&loc.Name, "name", "", "store name")
	flags.StringVar(&loc.Address, "address", "", "street address")
	flags.Float64Var(&loc.Latitude, "lat", 0, "latitude")
	flags.Float64Var(&loc.Longitude, "lng", 0, "longitude")
	flags.StringVar(&description, "description", "", "description")
	flags.StringVar(&website, "website", "", "website")
	flags.StringVar(&phone, "phone", "", "phone number")
	flags.Int64Var(&bookID, "book", 0, "id of a book sold there")
	cmd.MarkFlagRequired("name")
	return cmd
}
