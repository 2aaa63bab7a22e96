package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/sendwell/sendguard/config"
	"github.com/sendwell/sendguard/internal/database"
	"github.com/sendwell/sendguard/internal/repository"
	"github.com/sendwell/sendguard/server"
)

func main() {
	app := &cli.App{
		Name:  "sendguard",
		Usage: "email sending-account health and warmup orchestrator",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Run database migrations",
				Action: runMigrate,
			},
			{
				Name:   "server",
				Usage:  "Start the application server",
				Action: runServer,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runMigrate(c *cli.Context) error {
	cfg, err := config.InitConfig()
	if err != nil {
		return err
	}

	db, err := database.NewConnection(cfg.DatabaseConfig)
	if err != nil {
		return err
	}

	if err := repository.MigrateDB(cfg.DatabaseConfig, db); err != nil {
		return err
	}

	log.Println("Database migration completed successfully")
	return nil
}

func runServer(c *cli.Context) error {
	cfg, err := config.InitConfig()
	if err != nil {
		return err
	}

	db, err := database.NewConnection(cfg.DatabaseConfig)
	if err != nil {
		return err
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("SendGuard starting up...")

	srv, err := server.NewServer(cfg, db)
	if err != nil {
		return err
	}

	if err := srv.Run(); err != nil {
		return err
	}

	log.Println("Shutdown complete")
	return nil
}
