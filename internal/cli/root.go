// Package cli implements the helpdesk command line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/chat"
	"github.com/spec-kit/helpdesk/internal/clock"
	"github.com/spec-kit/helpdesk/internal/continuity"
	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// Accounts signs users in against the remote service.
type Accounts interface {
	Register(ctx context.Context, req dto.UserRegisterRequest) (*domain.Identity, error)
	Login(ctx context.Context, email, password string) (*domain.Identity, error)
	Logout(ctx context.Context) error
}

// Probe reports whether the remote service answers.
type Probe interface {
	Check(ctx context.Context) continuity.ProbeResult
}

// Dependencies wires the commands.
type Dependencies struct {
	Accounts      Accounts
	Invoker       chat.Invoker
	Probe         Probe
	Resolver      *continuity.Resolver
	Clock         clock.Clock
	Random        chat.RandomSource
	FallbackDelay time.Duration
	Logger        *zap.Logger
}

var errNotSignedIn = errors.New("you are not signed in; run `helpdesk login` or `helpdesk demo` first")

// NewRootCommand builds the helpdesk command tree.
func NewRootCommand(deps Dependencies) *cobra.Command {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}

	root := &cobra.Command{
		Use:           "helpdesk",
		Short:         "Chat with AIVA and manage support tickets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newStatusCmd(deps),
		newRegisterCmd(deps),
		newLoginCmd(deps),
		newDemoCmd(deps),
		newLogoutCmd(deps),
		newWhoamiCmd(deps),
		newTicketCmd(deps),
		newChatCmd(deps),
	)
	return root
}

func newStatusCmd(deps Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether the helpdesk service is reachable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result := deps.Probe.Check(cmd.Context())
			if result.Connected {
				fmt.Fprintln(cmd.OutOrStdout(), "connected")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "disconnected (%s)\n", result.Detail)
			return nil
		},
	}
}

func newRegisterCmd(deps Dependencies) *cobra.Command {
	var req dto.UserRegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			identity, err := deps.Accounts.Register(cmd.Context(), req)
			if apperrors.HasCode(err, apperrors.CodeConnectivity) {
				return errors.New("the helpdesk service is unreachable; run `helpdesk demo` to continue offline")
			}
			if err != nil {
				return friendly(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account created. Welcome, %s!\n", identity.FullName)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (at least 6 characters)")
	cmd.Flags().StringVar(&req.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&req.Department, "department", "", "department")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newLoginCmd(deps Dependencies) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in, falling back to demo mode when the service is down",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if probe := deps.Probe.Check(ctx); !probe.Connected {
				deps.Logger.Info("remote service unavailable, entering demo mode", zap.String("detail", probe.Detail))
				return startDemo(cmd, deps)
			}

			identity, err := deps.Accounts.Login(ctx, email, password)
			if apperrors.HasCode(err, apperrors.CodeConnectivity) {
				return startDemo(cmd, deps)
			}
			if apperrors.HasCode(err, apperrors.CodeUnauthorized) {
				return errors.New("invalid email or password")
			}
			if err != nil {
				return friendly(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", identity.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newDemoCmd(deps Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Continue offline with a local demo identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return startDemo(cmd, deps)
		},
	}
}

func startDemo(cmd *cobra.Command, deps Dependencies) error {
	identity, err := deps.Resolver.EstablishFallbackIdentity(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Demo mode active as %s. Your data is stored locally.\n", identity.FullName)
	return nil
}

func newLogoutCmd(deps Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the remote session and the demo identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := deps.Accounts.Logout(ctx); err != nil {
				return err
			}
			if err := deps.Resolver.ClearFallbackIdentity(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(deps Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			identity, err := requireIdentity(cmd.Context(), deps)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s, %s)\n",
				identity.FullName, identity.Email, identity.Department, identity.Source)
			return nil
		},
	}
}

func requireIdentity(ctx context.Context, deps Dependencies) (*domain.Identity, error) {
	identity, err := deps.Resolver.ResolveIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, errNotSignedIn
	}
	return identity, nil
}

// friendly turns domain errors into messages a requester can act on.
func friendly(err error) error {
	if apperrors.HasCode(err, apperrors.CodeNotAuth) {
		return errNotSignedIn
	}
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		return err
	}
	if domainErr.Code == apperrors.CodeValidation && len(domainErr.Details) > 0 {
		keys := make([]string, 0, len(domainErr.Details))
		for k := range domainErr.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %v", k, domainErr.Details[k]))
		}
		return fmt.Errorf("%s (%s)", domainErr.Message, strings.Join(parts, "; "))
	}
	return errors.New(domainErr.Message)
}

func writeLines(w io.Writer, lines ...string) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
