package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/config"
	"github.com/techagentng/ireporter/db"
	"github.com/techagentng/ireporter/mailingservices"
	"github.com/techagentng/ireporter/server"
	"github.com/techagentng/ireporter/services"
	"github.com/urfave/cli/v2"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	app := &cli.App{
		Name:  "ireporter-server",
		Usage: "iReporter REST API",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Create or update the database schema",
				Action: migrate,
			},
			{
				Name:      "promote-admin",
				Usage:     "Grant administrator rights to a registered user",
				ArgsUsage: "<email>",
				Action:    promoteAdmin,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("application failed")
	}
}

func loadConfig() (*config.Config, error) {
	conf, err := config.Load()
	if err != nil {
		return nil, err
	}
	if conf.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	return conf, nil
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conf, err := loadConfig()
	if err != nil {
		return err
	}
	if conf.JWTSecret == "" {
		return cli.Exit("IREPORTER_JWT_SECRET must be set", 1)
	}

	mailgunClient := &mailingservices.Mailgun{}
	mailgunClient.Init(conf)

	gormDB := db.GetDB(conf)

	blacklist, err := db.InitRedis(conf.RedisAddr, conf.RedisPassword)
	if err != nil {
		return err
	}
	defer blacklist.Client.Close()

	store, err := db.NewMediaStore(ctx, conf)
	if err != nil {
		return err
	}

	authRepo := db.NewAuthRepo(gormDB)
	reportRepo := db.NewReportRepo(gormDB)
	commentRepo := db.NewCommentRepo(gormDB)
	upvoteRepo := db.NewUpvoteRepo(gormDB)
	notificationRepo := db.NewNotificationRepo(gormDB)

	hub := server.NewHub()
	authService := services.NewAuthService(authRepo, blacklist, conf)
	mediaService := services.NewMediaService(store)
	notificationService := services.NewNotificationService(notificationRepo, hub, mailgunClient)
	reportService := services.NewReportService(reportRepo, mediaService, notificationService, conf)
	commentService := services.NewCommentService(commentRepo, reportService)
	upvoteService := services.NewUpvoteService(upvoteRepo, reportService)

	s := &server.Server{
		Config:              conf,
		Mail:                mailgunClient,
		AuthService:         authService,
		ReportService:       reportService,
		MediaService:        mediaService,
		CommentService:      commentService,
		UpvoteService:       upvoteService,
		NotificationService: notificationService,
		Hub:                 hub,
	}
	return s.Start(ctx)
}

func migrate(cCtx *cli.Context) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	// GetDB migrates on connect.
	db.GetDB(conf)
	logrus.Info("database schema is up to date")
	return nil
}

func promoteAdmin(cCtx *cli.Context) error {
	email := cCtx.Args().First()
	if email == "" {
		return cli.Exit("usage: ireporter-server promote-admin <email>", 2)
	}
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	gormDB := db.GetDB(conf)
	authService := services.NewAuthService(db.NewAuthRepo(gormDB), nil, conf)
	if err := authService.PromoteAdmin(email); err != nil {
		return err
	}
	logrus.WithField("email", email).Info("user promoted to admin")
	return nil
}
