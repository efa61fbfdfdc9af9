package commands

import (
	"os/signal"
	"syscall"

	"github.com/loykin/zephyrrun/internal/constants"
	"github.com/loykin/zephyrrun/internal/server"
	"github.com/loykin/zephyrrun/internal/util"
	"github.com/spf13/cobra"
)

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an HTTP relay that reports results through one logged-in session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := openSession(ctx, true)
		if err != nil {
			return err
		}
		defer s.close()
		if _, err := s.client.Login(ctx); err != nil {
			return err
		}

		addr, _ := cmd.Flags().GetString("addr")
		if !cmd.Flags().Changed("addr") {
			addr = util.TrimWithDefault(s.doc.Serve.Addr, addr)
		}
		secret := s.doc.JWTSecret()
		if secret == "" {
			s.logger.Warn("relay runs without JWT verification; set serve.jwt_secret to require tokens")
		}
		srv := server.New(server.Config{
			Addr:   addr,
			Logger: s.logger,
			JWT: server.VerifyConfig{
				Secret:          []byte(secret),
				AllowedIssuer:   s.doc.Serve.JWTIssuer,
				AllowedAudience: s.doc.Serve.JWTAudience,
				ClockSkew:       constants.DefaultJWTSkew,
			},
		}, s.client)
		return srv.Run(ctx)
	},
}

func init() {
	ServeCmd.Flags().String("addr", constants.DefaultServeAddr, "listen address")
}
