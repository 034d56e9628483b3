package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func newTicketCmd(deps Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ticket",
		Short: "Create and view support tickets",
	}
	cmd.AddCommand(newTicketCreateCmd(deps), newTicketListCmd(deps), newTicketLatestCmd(deps))
	return cmd
}

func newTicketCreateCmd(deps Dependencies) *cobra.Command {
	var fields domain.TicketFields
	var priority string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a new ticket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fields.Priority = domain.TicketPriority(priority)
			ticket, err := deps.Resolver.CreateTicket(cmd.Context(), fields)
			if err != nil {
				return friendly(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ticket %s created (%s).\n", ticket.TicketNumber, ticket.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&fields.Title, "title", "", "short summary")
	cmd.Flags().StringVar(&fields.Description, "description", "", "what happened")
	cmd.Flags().StringVar(&fields.Category, "category", "Other", "one of: Network Issues, Software Problems, Hardware Malfunction, Login Issues, Email Problems, Performance Issues, Other")
	cmd.Flags().StringVar(&priority, "priority", string(domain.TicketPriorityMedium), "low, medium, high or critical")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newTicketListCmd(deps Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your tickets, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			identity, err := requireIdentity(cmd.Context(), deps)
			if err != nil {
				return err
			}
			tickets, err := deps.Resolver.ListTickets(cmd.Context(), identity.ID)
			if err != nil {
				return friendly(err)
			}
			if len(tickets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tickets yet. Start a conversation with `helpdesk chat` or create one with `helpdesk ticket create`.")
				return nil
			}
			return printTickets(cmd.OutOrStdout(), tickets)
		},
	}
}

func newTicketLatestCmd(deps Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show your most recent ticket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			identity, err := requireIdentity(cmd.Context(), deps)
			if err != nil {
				return err
			}
			ticket, err := deps.Resolver.LatestTicket(cmd.Context(), identity.ID)
			if err != nil {
				return friendly(err)
			}
			if ticket == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No tickets yet.")
				return nil
			}
			return printTickets(cmd.OutOrStdout(), []domain.Ticket{*ticket})
		},
	}
}

func printTickets(w io.Writer, tickets []domain.Ticket) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tSTATUS\tPRIORITY\tCATEGORY\tTITLE")
	for _, t := range tickets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.TicketNumber, t.Status, t.Priority, t.Category, t.Title)
	}
	return tw.Flush()
}
