package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/techagentng/ireporter/models"
	"github.com/techagentng/ireporter/workflow"
	"github.com/urfave/cli/v2"
)

func (a *app) loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "sign in and remember the session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"IREPORTER_PASSWORD"}},
		},
		Action: func(cCtx *cli.Context) error {
			env, err := a.client.Login(cCtx.Context, cCtx.String("email"), cCtx.String("password"))
			if err := check(env, err, "Login failed"); err != nil {
				return err
			}
			return a.printWhoami(cCtx)
		},
	}
}

func (a *app) registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "create an account and sign in",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "first-name", Required: true},
			&cli.StringFlag{Name: "last-name", Required: true},
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "phone"},
			&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"IREPORTER_PASSWORD"}},
		},
		Action: func(cCtx *cli.Context) error {
			env, err := a.client.Register(cCtx.Context, models.SignupRequest{
				FirstName: cCtx.String("first-name"),
				LastName:  cCtx.String("last-name"),
				Email:     cCtx.String("email"),
				Phone:     cCtx.String("phone"),
				Password:  cCtx.String("password"),
			})
			if err := check(env, err, "Registration failed"); err != nil {
				return err
			}
			return a.printWhoami(cCtx)
		},
	}
}

func (a *app) passwordCommand() *cli.Command {
	return &cli.Command{
		Name:  "password",
		Usage: "recover a forgotten password",
		Subcommands: []*cli.Command{
			{
				Name:  "forgot",
				Usage: "email yourself a reset link",
				Flags: []cli.Flag{&cli.StringFlag{Name: "email", Required: true}},
				Action: func(cCtx *cli.Context) error {
					env, err := a.client.ForgotPassword(cCtx.Context, cCtx.String("email"))
					if err := check(env, err, "Failed to request a reset link"); err != nil {
						return err
					}
					fmt.Fprintln(cCtx.App.Writer, env.Reason("reset link sent"))
					return nil
				},
			},
			{
				Name:      "reset",
				Usage:     "choose a new password with the emailed token",
				ArgsUsage: "<token>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"IREPORTER_NEW_PASSWORD"}},
				},
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() != 1 {
						return cli.Exit("usage: ireporter password reset <token>", 2)
					}
					env, err := a.client.ResetPassword(cCtx.Context, cCtx.Args().First(), cCtx.String("password"))
					if err := check(env, err, "Failed to reset password"); err != nil {
						return err
					}
					fmt.Fprintln(cCtx.App.Writer, "password changed; sign in with `ireporter login`")
					return nil
				},
			},
		},
	}
}

func (a *app) logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "revoke the token and forget the session",
		Action: func(cCtx *cli.Context) error {
			env, err := a.client.Logout(cCtx.Context)
			if err != nil {
				return err
			}
			if env.Failed() {
				fmt.Fprintln(cCtx.App.ErrWriter, "warning:", env.Reason("logout failed on the server"))
			}
			fmt.Fprintln(cCtx.App.Writer, "signed out")
			return nil
		},
	}
}

func (a *app) whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:   "whoami",
		Usage:  "show the signed in user",
		Action: a.printWhoami,
	}
}

func (a *app) printWhoami(cCtx *cli.Context) error {
	snap, err := a.requireSession()
	if err != nil {
		return err
	}
	u := snap.User
	if u == nil {
		fmt.Fprintln(cCtx.App.Writer, "signed in")
		return nil
	}
	fmt.Fprintf(cCtx.App.Writer, "%s <%s> (%s)\n", u.Name, u.Email, u.Role)
	return nil
}

func (a *app) profileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "show or change your profile",
		Subcommands: []*cli.Command{
			{
				Name:  "edit",
				Usage: "change name or phone",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "first-name"},
					&cli.StringFlag{Name: "last-name"},
					&cli.StringFlag{Name: "phone"},
				},
				Action: func(cCtx *cli.Context) error {
					var req models.EditProfileRequest
					for flag, dst := range map[string]**string{
						"first-name": &req.FirstName,
						"last-name":  &req.LastName,
						"phone":      &req.Phone,
					} {
						if cCtx.IsSet(flag) {
							v := cCtx.String(flag)
							*dst = &v
						}
					}
					_, env, err := a.client.UpdateProfile(cCtx.Context, req)
					if err := check(env, err, "Failed to update profile"); err != nil {
						return err
					}
					return a.printWhoami(cCtx)
				},
			},
			{
				Name:      "picture",
				Usage:     "upload a profile picture",
				ArgsUsage: "<file>",
				Action: func(cCtx *cli.Context) error {
					file, err := workflow.LoadMediaFile(cCtx.Args().First())
					if err != nil {
						return err
					}
					if !file.IsImage() {
						return cli.Exit("profile picture must be an image", 1)
					}
					_, env, err := a.client.UploadProfilePicture(cCtx.Context, file)
					if err := check(env, err, "Failed to upload picture"); err != nil {
						return err
					}
					fmt.Fprintln(cCtx.App.Writer, "profile picture updated")
					return nil
				},
			},
		},
		Action: func(cCtx *cli.Context) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			u, env, err := a.client.Profile(cCtx.Context)
			if err := check(env, err, "Failed to load profile"); err != nil {
				return err
			}
			w := tabwriter.NewWriter(cCtx.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Name\t%s\n", u.Name)
			fmt.Fprintf(w, "Email\t%s\n", u.Email)
			fmt.Fprintf(w, "Phone\t%s\n", u.Phone)
			fmt.Fprintf(w, "Role\t%s\n", u.Role)
			if u.ProfilePicture != "" {
				fmt.Fprintf(w, "Picture\t%s\n", a.client.FileURL(u.ProfilePicture))
			}
			return w.Flush()
		},
	}
}

func (a *app) notificationsCommand() *cli.Command {
	return &cli.Command{
		Name:  "notifications",
		Usage: "list status change notifications",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "mark-read", Usage: "mark all notifications read"},
		},
		Action: func(cCtx *cli.Context) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			if cCtx.Bool("mark-read") {
				n, env, err := a.client.MarkNotificationsRead(cCtx.Context)
				if err := check(env, err, "Failed to update notifications"); err != nil {
					return err
				}
				fmt.Fprintf(cCtx.App.Writer, "%d marked read\n", n)
				return nil
			}
			notes, env, err := a.client.Notifications(cCtx.Context)
			if err := check(env, err, "Failed to load notifications"); err != nil {
				return err
			}
			w := tabwriter.NewWriter(cCtx.App.Writer, 0, 4, 2, ' ', 0)
			for _, n := range notes {
				mark := " "
				if !n.Read {
					mark = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\n", mark, n.CreatedAt.Format("2006-01-02 15:04"), n.Kind.Label(), n.ReportID, n.Message)
			}
			return w.Flush()
		},
	}
}
