package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk/internal/chat"
	"github.com/spec-kit/helpdesk/internal/domain"
)

const (
	greeting       = "Hey there! I'm AIVA, your AI assistant. Tell me what's troubling you and I'll do my best to help!"
	maxTitleLength = 80
)

func newChatCmd(deps Dependencies) *cobra.Command {
	var ticketID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to AIVA",
		Long: `Start an interactive conversation with AIVA.

Commands inside the chat:
  /ticket  open a ticket from this conversation
  /quit    leave the chat`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, deps, ticketID)
		},
	}
	cmd.Flags().StringVar(&ticketID, "ticket", "", "ticket id to discuss")
	return cmd
}

func runChat(cmd *cobra.Command, deps Dependencies, ticketID string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	session := chat.NewSession(chat.Options{
		Invoker:       deps.Invoker,
		Clock:         deps.Clock,
		Random:        deps.Random,
		FallbackDelay: deps.FallbackDelay,
		TicketID:      ticketID,
		Logger:        deps.Logger,
		OnMessage: func(m domain.Message) {
			if m.Role == domain.RoleAssistant {
				fmt.Fprintf(out, "AIVA: %s\n", m.Content)
			}
		},
	})
	defer session.Close()

	writeLines(out, "AIVA: "+greeting, "(type /ticket to open a ticket, /quit to leave)")

	var lastHint *chat.Escalation
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/ticket":
			if err := ticketFromTranscript(cmd, deps, session.Transcript()); err != nil {
				fmt.Fprintf(out, "Could not create a ticket: %v\n", friendly(err))
			}
			continue
		}

		if res := session.Submit(ctx, line); !res.Accepted {
			continue
		}
		if err := session.Wait(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(out, "\nBye!")
				return nil
			}
			return err
		}

		if esc := session.Escalation(); esc != nil && esc.ShouldCreateTicket && (lastHint == nil || *esc != *lastHint) {
			fmt.Fprintln(out, "Type /ticket and I'll pass this conversation to our support team.")
			lastHint = esc
		}
	}
	return scanner.Err()
}

func ticketFromTranscript(cmd *cobra.Command, deps Dependencies, transcript []domain.Message) error {
	var title string
	var body strings.Builder
	for _, m := range transcript {
		speaker := "AIVA"
		if m.Role == domain.RoleUser {
			speaker = "You"
			if title == "" {
				title = m.Content
			}
		}
		fmt.Fprintf(&body, "%s: %s\n", speaker, m.Content)
	}
	if title == "" {
		return fmt.Errorf("say something first so the ticket has a subject")
	}

	ticket, err := deps.Resolver.CreateTicket(cmd.Context(), domain.TicketFields{
		Title:       truncate(title, maxTitleLength),
		Description: strings.TrimSpace(body.String()),
		Category:    "Other",
		Priority:    domain.TicketPriorityMedium,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Ticket %s created. Our team will follow up.\n", ticket.TicketNumber)
	return nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
