// Command ireporter is the terminal client for the iReporter API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/client"
	"github.com/techagentng/ireporter/config"
	"github.com/techagentng/ireporter/session"
	"github.com/urfave/cli/v2"
)

// app is what every command needs: the API client and its session.
type app struct {
	conf   *config.ClientConfig
	store  *session.FileStore
	client *client.Client
}

func main() {
	logrus.SetOutput(os.Stderr)

	a := &app{}
	cliApp := &cli.App{
		Name:  "ireporter",
		Usage: "report corruption and request interventions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api", Usage: "API base URL", EnvVars: []string{"IREPORTER_API_URL"}},
			&cli.BoolFlag{Name: "debug", Usage: "log requests"},
		},
		Before: a.setup,
		Commands: []*cli.Command{
			a.loginCommand(),
			a.registerCommand(),
			a.logoutCommand(),
			a.passwordCommand(),
			a.whoamiCommand(),
			a.profileCommand(),
			a.reportsCommand(),
			a.adminCommand(),
			a.commentsCommand(),
			a.upvoteCommand(),
			a.notificationsCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		logrus.WithError(err).Fatal("ireporter failed")
	}
}

func (a *app) setup(cCtx *cli.Context) error {
	conf, err := config.LoadClient()
	if err != nil {
		return err
	}
	if api := cCtx.String("api"); api != "" {
		conf.APIURL = api
	}
	if conf.Debug || cCtx.Bool("debug") {
		logrus.SetLevel(logrus.DebugLevel)
	}
	a.conf = conf
	a.store = session.NewFileStore(conf.SessionFile)
	a.client = client.New(conf.APIURL, a.store)
	return nil
}

// requireSession fails early when nobody is signed in.
func (a *app) requireSession() (session.Snapshot, error) {
	snap, err := a.store.Load()
	if err != nil {
		return snap, err
	}
	if !snap.SignedIn() {
		return snap, cli.Exit("not signed in; run `ireporter login` first", 1)
	}
	return snap, nil
}

// check turns a transport error or failed response into a CLI error.
func check(env *client.Envelope, err error, fallback string) error {
	if err != nil {
		return cli.Exit("Server error: "+err.Error(), 1)
	}
	if env.Failed() {
		return cli.Exit(env.Reason(fallback), 1)
	}
	return nil
}
