package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jrsteele09/go-auth-state/authstate"
	"github.com/jrsteele09/go-auth-state/internal/config"
	apperrors "github.com/jrsteele09/go-auth-state/internal/errors"
	"github.com/jrsteele09/go-auth-state/internal/utils"
	"github.com/jrsteele09/go-auth-state/oauth2"
	"github.com/jrsteele09/go-auth-state/oauthmodel"
	"github.com/jrsteele09/go-auth-state/provider"
	"github.com/jrsteele09/go-auth-state/session"
	"github.com/jrsteele09/go-auth-state/store"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRootCommand(c config.Config) *cobra.Command {
	a := &app{config: c}
	root := &cobra.Command{
		Use:          "authctl",
		Short:        "Log in to an OpenID Connect provider and keep the tokens fresh",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.sessionName, "session", "default", "name of the stored session")
	root.AddCommand(
		newLoginCommand(a),
		newRegisterCommand(a),
		newStatusCommand(a),
		newTokenCommand(a),
		newLogoutCommand(a),
	)
	return root
}

func newLoginCommand(a *app) *cobra.Command {
	var responseType string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize in the browser and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			displayAppname(a.config.GetAppName())
			if a.config.GetClientID() == "" {
				return apperrors.ErrMissingClientID
			}
			repo, err := a.repo()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			ua := provider.NewLoopbackUserAgent(a.config.GetRedirectPort())
			redirectURI, err := ua.Start(ctx)
			if err != nil {
				return err
			}
			defer ua.Stop()

			svc, err := a.service(provider.WithUserAgent(ua))
			if err != nil {
				return err
			}
			req, err := oauthmodel.NewAuthorizationRequest(oauthmodel.AuthorizationParameters{
				ClientID:     a.config.GetClientID(),
				ClientSecret: a.config.GetClientSecret(),
				RedirectURI:  redirectURI,
				ResponseType: responseType,
				Scopes:       a.config.GetScopes(),
			})
			if err != nil {
				return err
			}

			state, err := session.Authorize(ctx, svc, req, a.stateOptions(svc)...)
			if err != nil {
				return err
			}
			if _, err := session.New(repo, state, session.WithID(a.sessionName)); err != nil {
				return err
			}
			log.Info().Str("session", a.sessionName).Object("state", state).Msg("Logged in")
			return nil
		},
	}
	cmd.Flags().StringVar(&responseType, "response-type", string(oauth2.CodeResponseType), "authorization response type")
	return cmd
}

func newRegisterCommand(a *app) *cobra.Command {
	var clientName string
	var port int
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new client with the provider (RFC 7591)",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			resp, err := svc.RegisterClient(cmd.Context(), &oauth2.RegistrationRequest{
				ClientName:              clientName,
				RedirectURIs:            []string{fmt.Sprintf("http://127.0.0.1:%d/callback", port)},
				GrantTypes:              []string{string(oauth2.AuthorizationCodeGrant), string(oauth2.RefreshTokenGrant)},
				ResponseTypes:           []string{string(oauth2.CodeResponseType)},
				TokenEndpointAuthMethod: "none",
				Scope:                   utils.JoinScopes(a.config.GetScopes()),
			})
			if err != nil {
				return err
			}

			repo, err := a.repo()
			if err != nil {
				return err
			}
			state := authstate.NewFromRegistration(resp, a.stateOptions(svc)...)
			if _, err := session.New(repo, state, session.WithID(a.sessionName)); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "OAUTH_CLIENT_ID=%s\n", resp.ClientID)
			if resp.ClientSecret != nil {
				fmt.Fprintf(os.Stdout, "OAUTH_CLIENT_SECRET=%s\n", *resp.ClientSecret)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&clientName, "name", "authctl", "client name")
	cmd.Flags().IntVar(&port, "port", 3000, "loopback redirect port")
	return cmd
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.restore()
			if err != nil {
				return err
			}
			state := s.State
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Session:     %s\n", s.ID)
			fmt.Fprintf(w, "Authorized:  %t\n", state.IsAuthorized())
			fmt.Fprintf(w, "Fresh:       %t\n", state.IsTokenFresh())
			if exp := state.AccessTokenExpiration(); exp != nil {
				fmt.Fprintf(w, "Expires:     %s\n", exp.Local().Format(time.RFC1123))
			}
			fmt.Fprintf(w, "Scope:       %s\n", utils.Value(state.Scope()))
			if err := state.AuthorizationError(); err != nil {
				fmt.Fprintf(w, "Error:       %s\n", err)
			}
			if claims, err := state.IDTokenClaims(); err == nil {
				fmt.Fprintf(w, "Subject:     %s\n", claims.Subject)
				if claims.Email != "" {
					fmt.Fprintf(w, "Email:       %s\n", claims.Email)
				}
			}
			log.Debug().Object("state", state).Msg("Stored session")
			return nil
		},
	}
}

func newTokenCommand(a *app) *cobra.Command {
	var idToken bool
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a fresh access token, refreshing it if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.restore()
			if err != nil {
				return err
			}
			if s.State.AuthorizationError() != nil {
				return apperrors.ErrSessionExpired
			}
			accessToken, idTok, err := s.State.FreshToken(cmd.Context())
			if err != nil {
				return err
			}
			tok := accessToken
			if idToken {
				tok = idTok
			}
			if tok == nil {
				return apperrors.ErrSessionExpired
			}
			fmt.Fprintln(cmd.OutOrStdout(), *tok)
			return nil
		},
	}
	cmd.Flags().BoolVar(&idToken, "id-token", false, "print the ID token instead")
	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repo()
			if err != nil {
				return err
			}
			if err := repo.Delete(a.sessionName); err != nil && !apperrors.Is(err, store.ErrNotFound) {
				return err
			}
			log.Info().Str("session", a.sessionName).Msg("Logged out")
			return nil
		},
	}
}
