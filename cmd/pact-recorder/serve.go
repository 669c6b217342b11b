package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/form3tech-oss/pact-recorder/internal/app/configuration"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var adminPort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the admin API and the recorders configured in RECORDERS",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		recorders, err := configuration.RecorderConfigs(config)
		if err != nil {
			return err
		}
		for _, recorder := range recorders {
			log.Infof("setting up recorder from %s to %s", recorder.ServerAddress.String(), recorder.Target.String())
			if err := configuration.ConfigureRecorder(recorder); err != nil {
				return err
			}
		}

		if !cmd.Flags().Changed("admin-port") {
			adminPort = process.AdminPort
		}
		adminServer := configuration.ServeAdminAPI(adminPort)
		log.Infof("admin API listening on :%d", adminPort)

		c := make(chan os.Signal, 2)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := adminServer.Shutdown(ctx); err != nil {
			log.Error(err)
		}
		configuration.ShutdownAllServers(ctx)
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&adminPort, "admin-port", 8080, "Port of the admin API, defaults to ADMIN_PORT")
	rootCmd.AddCommand(serveCmd)
}
