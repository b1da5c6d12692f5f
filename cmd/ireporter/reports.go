package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/techagentng/ireporter/client"
	"github.com/techagentng/ireporter/models"
	"github.com/techagentng/ireporter/workflow"
	"github.com/urfave/cli/v2"
)

func parseKindArg(raw string) (models.Kind, error) {
	kind, ok := models.ParseKind(raw)
	if !ok {
		return "", cli.Exit(fmt.Sprintf("unknown report kind %q (want red-flag or intervention)", raw), 2)
	}
	return kind, nil
}

// kindAndID reads the <kind> <id> arguments shared by most report commands.
func kindAndID(cCtx *cli.Context) (models.Kind, string, error) {
	if cCtx.NArg() < 2 {
		return "", "", cli.Exit("usage: "+cCtx.Command.HelpName+" <kind> <id>", 2)
	}
	kind, err := parseKindArg(cCtx.Args().Get(0))
	return kind, cCtx.Args().Get(1), err
}

// fetch loads one report for the gate to inspect.
func (a *app) fetch(cCtx *cli.Context, kind models.Kind, id string) (client.Report, error) {
	r, env, err := a.client.GetReport(cCtx.Context, kind, id)
	if err := check(env, err, kind.Label()+" not found"); err != nil {
		return client.Report{}, err
	}
	return *r, nil
}

// pickFiles runs the paths through the attachment rules.
func pickFiles(paths []string) ([]workflow.MediaFile, error) {
	var picked []workflow.MediaFile
	for _, p := range paths {
		f, err := workflow.LoadMediaFile(p)
		if err != nil {
			return nil, err
		}
		sel, err := workflow.SelectFiles(picked, []workflow.MediaFile{f})
		if err != nil {
			return nil, cli.Exit(err.Error(), 1)
		}
		picked = sel.Files
	}
	return picked, nil
}

func locationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{Name: "lat", Usage: "latitude"},
		&cli.Float64Flag{Name: "lng", Usage: "longitude"},
	}
}

func locationFrom(cCtx *cli.Context) *workflow.Location {
	if !cCtx.IsSet("lat") && !cCtx.IsSet("lng") {
		return nil
	}
	return &workflow.Location{Latitude: cCtx.Float64("lat"), Longitude: cCtx.Float64("lng")}
}

func (a *app) board(cCtx *cli.Context) (*workflow.Board, error) {
	q := client.ListQuery{Mine: cCtx.Bool("mine")}
	if raw := cCtx.String("status"); raw != "" {
		if q.Status = models.ParseStatus(raw); q.Status == models.StatusUnknown {
			return nil, cli.Exit(fmt.Sprintf("unknown status %q", raw), 2)
		}
	}
	b := workflow.NewBoard(a.client, q)
	if err := b.Load(cCtx.Context); err != nil {
		return nil, cli.Exit(err.Error(), 1)
	}
	return b, nil
}

func (a *app) selected(cCtx *cli.Context, b *workflow.Board) ([]client.Report, error) {
	reports := b.All()
	if raw := cCtx.String("kind"); raw != "" && raw != "all" {
		kind, err := parseKindArg(raw)
		if err != nil {
			return nil, err
		}
		reports = b.Reports(kind)
	}
	return workflow.Search(reports, cCtx.String("search")), nil
}

func printReports(w io.Writer, reports []client.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tID\tSTATUS\tTITLE\tOWNER\tCREATED")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Kind, r.ID, r.Status.Label(), r.Title, r.OwnerName, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func boardFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "kind", Usage: "red-flag, intervention or all", Value: "all"},
		&cli.StringFlag{Name: "status", Usage: "only reports with this status"},
		&cli.BoolFlag{Name: "mine", Usage: "only your own reports"},
		&cli.StringFlag{Name: "search", Usage: "id or owner name"},
	}
}

func (a *app) reportsCommand() *cli.Command {
	return &cli.Command{
		Name:    "reports",
		Aliases: []string{"r"},
		Usage:   "work with red flags and interventions",
		Before: func(cCtx *cli.Context) error {
			_, err := a.requireSession()
			return err
		},
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list reports",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "sort", Usage: "newest, oldest or status", Value: string(workflow.SortNewest)},
				}, boardFlags()...),
				Action: func(cCtx *cli.Context) error {
					b, err := a.board(cCtx)
					if err != nil {
						return err
					}
					reports, err := a.selected(cCtx, b)
					if err != nil {
						return err
					}
					return printReports(cCtx.App.Writer, workflow.SortReports(reports, workflow.SortMode(cCtx.String("sort"))))
				},
			},
			{
				Name:      "show",
				Usage:     "show one report",
				ArgsUsage: "<kind> <id>",
				Action:    a.showReport,
			},
			{
				Name:  "create",
				Usage: "file a new report as a draft",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "kind", Value: string(models.KindRedFlag)},
					&cli.StringFlag{Name: "title"},
					&cli.StringFlag{Name: "description"},
					&cli.StringSliceFlag{Name: "file", Usage: "image or video to attach (at most two)"},
				}, locationFlags()...),
				Action: func(cCtx *cli.Context) error {
					kind, err := parseKindArg(cCtx.String("kind"))
					if err != nil {
						return err
					}
					return a.submit(cCtx, workflow.Draft{Kind: kind})
				},
			},
			{
				Name:      "edit",
				Usage:     "change a draft report",
				ArgsUsage: "<kind> <id>",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "title"},
					&cli.StringFlag{Name: "description"},
					&cli.StringSliceFlag{Name: "file", Usage: "replace media with these files"},
				}, locationFlags()...),
				Action: func(cCtx *cli.Context) error {
					kind, id, err := kindAndID(cCtx)
					if err != nil {
						return err
					}
					r, err := a.fetch(cCtx, kind, id)
					if err != nil {
						return err
					}
					if err := workflow.Permit(r, workflow.ActionEdit); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					changed := false
					for _, name := range []string{"title", "description", "file", "lat", "lng"} {
						changed = changed || cCtx.IsSet(name)
					}
					if !changed {
						return cli.Exit("nothing to change", 2)
					}
					return a.submit(cCtx, workflow.Draft{ReportID: id, Kind: kind, Title: r.Title, Description: r.Description})
				},
			},
			{
				Name:      "relocate",
				Usage:     "move a draft report",
				ArgsUsage: "<kind> <id>",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "lat", Required: true},
					&cli.Float64Flag{Name: "lng", Required: true},
				},
				Action: func(cCtx *cli.Context) error {
					kind, id, err := kindAndID(cCtx)
					if err != nil {
						return err
					}
					r, err := a.fetch(cCtx, kind, id)
					if err != nil {
						return err
					}
					b := workflow.NewBoard(a.client, client.ListQuery{Mine: true})
					if err := b.Relocate(cCtx.Context, r, cCtx.Float64("lat"), cCtx.Float64("lng")); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					fmt.Fprintf(cCtx.App.Writer, "%s %s moved\n", kind.Label(), id)
					return nil
				},
			},
			{
				Name:      "delete",
				Usage:     "delete a draft report",
				ArgsUsage: "<kind> <id>",
				Action: func(cCtx *cli.Context) error {
					kind, id, err := kindAndID(cCtx)
					if err != nil {
						return err
					}
					r, err := a.fetch(cCtx, kind, id)
					if err != nil {
						return err
					}
					b := workflow.NewBoard(a.client, client.ListQuery{Mine: true})
					if err := b.Delete(cCtx.Context, r); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					fmt.Fprintf(cCtx.App.Writer, "%s %s deleted\n", kind.Label(), id)
					return nil
				},
			},
			{
				Name:  "stats",
				Usage: "count reports by status and kind",
				Flags: boardFlags(),
				Action: func(cCtx *cli.Context) error {
					b, err := a.board(cCtx)
					if err != nil {
						return err
					}
					reports, err := a.selected(cCtx, b)
					if err != nil {
						return err
					}
					counts := workflow.ComputeStatusCounts(reports)
					tw := tabwriter.NewWriter(cCtx.App.Writer, 0, 4, 2, ' ', 0)
					fmt.Fprintf(tw, "Total\t%d\n", counts.Total())
					fmt.Fprintf(tw, "Resolved\t%d\n", counts.Resolved)
					fmt.Fprintf(tw, "Unresolved\t%d\n", counts.Unresolved)
					fmt.Fprintf(tw, "Rejected\t%d\n", counts.Rejected)
					if counts.Unknown > 0 {
						fmt.Fprintf(tw, "Unknown\t%d\n", counts.Unknown)
					}
					fmt.Fprintln(tw)
					for _, bucket := range workflow.Breakdown(reports) {
						fmt.Fprintf(tw, "%s\t%d\n", bucket.Label, bucket.Count)
					}
					fmt.Fprintln(tw)
					byKind := workflow.CountByKind(reports)
					for _, kind := range models.Kinds {
						fmt.Fprintf(tw, "%s\t%d\n", kind.Label(), byKind[kind])
					}
					return tw.Flush()
				},
			},
			{
				Name:  "recent",
				Usage: "reports filed in the last few days",
				Flags: append([]cli.Flag{
					&cli.IntFlag{Name: "days", Value: 7},
					&cli.IntFlag{Name: "limit", Value: 5},
				}, boardFlags()...),
				Action: func(cCtx *cli.Context) error {
					b, err := a.board(cCtx)
					if err != nil {
						return err
					}
					reports, err := a.selected(cCtx, b)
					if err != nil {
						return err
					}
					recent := workflow.RecentReports(reports, time.Now(), cCtx.Int("days"), cCtx.Int("limit"))
					return printReports(cCtx.App.Writer, recent)
				},
			},
			{
				Name:  "export",
				Usage: "write reports as CSV",
				Flags: append([]cli.Flag{
					&cli.PathFlag{Name: "out", Aliases: []string{"o"}, Usage: "file to write, stdout when empty"},
				}, boardFlags()...),
				Action: func(cCtx *cli.Context) error {
					b, err := a.board(cCtx)
					if err != nil {
						return err
					}
					reports, err := a.selected(cCtx, b)
					if err != nil {
						return err
					}
					w := cCtx.App.Writer
					if out := cCtx.Path("out"); out != "" {
						f, err := os.Create(out)
						if err != nil {
							return err
						}
						defer f.Close()
						w = f
					}
					return workflow.ExportCSV(w, workflow.SortReports(reports, workflow.SortNewest))
				},
			},
		},
	}
}

func (a *app) submit(cCtx *cli.Context, draft workflow.Draft) error {
	if cCtx.IsSet("title") {
		draft.Title = cCtx.String("title")
	}
	if cCtx.IsSet("description") {
		draft.Description = cCtx.String("description")
	}
	draft.Location = locationFrom(cCtx)
	files, err := pickFiles(cCtx.StringSlice("file"))
	if err != nil {
		return err
	}
	draft.Files = files

	s := &workflow.Submitter{API: a.client}
	out := s.Submit(cCtx.Context, draft)
	if !out.OK() {
		return cli.Exit(out.Message, 1)
	}
	fmt.Fprintf(cCtx.App.Writer, "saved; see %s\n", out.Navigate)
	return nil
}

func (a *app) showReport(cCtx *cli.Context) error {
	kind, id, err := kindAndID(cCtx)
	if err != nil {
		return err
	}
	r, err := a.fetch(cCtx, kind, id)
	if err != nil {
		return err
	}
	up, _, _ := a.client.Upvotes(cCtx.Context, kind, id)

	tw := tabwriter.NewWriter(cCtx.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", kind.Label(), r.ID)
	fmt.Fprintf(tw, "Title\t%s\n", r.Title)
	fmt.Fprintf(tw, "Description\t%s\n", r.Description)
	fmt.Fprintf(tw, "Status\t%s\n", r.Status.Label())
	fmt.Fprintf(tw, "Location\t%g, %g\n", r.Latitude, r.Longitude)
	fmt.Fprintf(tw, "Owner\t%s\n", r.OwnerName)
	fmt.Fprintf(tw, "Created\t%s\n", r.CreatedAt.Format(time.RFC1123))
	fmt.Fprintf(tw, "Updated\t%s\n", r.UpdatedAt.Format(time.RFC1123))
	fmt.Fprintf(tw, "Upvotes\t%d\n", up.Count)
	if preview := workflow.StoredPreview(a.client.FileURL, r); preview != "" {
		fmt.Fprintf(tw, "Preview\t%s\n", preview)
	}
	for _, key := range append(append(append([]string(nil), r.Images...), r.Videos...), r.Audio...) {
		fmt.Fprintf(tw, "Media\t%s\n", a.client.FileURL(key))
	}
	controls := workflow.Controls(r)
	fmt.Fprintf(tw, "Editable\t%t\n", controls.Edit)
	if next := models.NextStatuses(r.Status); len(next) > 0 {
		labels := make([]string, len(next))
		for i, s := range next {
			labels[i] = s.APIValue()
		}
		fmt.Fprintf(tw, "Next\t%s\n", strings.Join(labels, ", "))
	}
	return tw.Flush()
}

func (a *app) adminCommand() *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "administrator actions",
		Before: func(cCtx *cli.Context) error {
			_, err := a.requireSession()
			return err
		},
		Subcommands: []*cli.Command{
			{
				Name:      "status",
				Usage:     "move a report through the review workflow",
				ArgsUsage: "<kind> <id> <status>",
				Action: func(cCtx *cli.Context) error {
					kind, id, err := kindAndID(cCtx)
					if err != nil {
						return err
					}
					target := models.ParseStatus(cCtx.Args().Get(2))
					if target == models.StatusUnknown {
						return cli.Exit("status must be one of draft, under-investigation, resolved, rejected", 2)
					}
					r, err := a.fetch(cCtx, kind, id)
					if err != nil {
						return err
					}
					board := workflow.NewBoard(a.client, client.ListQuery{})
					admin := &workflow.Admin{API: a.client, Session: a.store, Board: board}
					if err := admin.Transition(cCtx.Context, kind, id, r.Status, target); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					now := target
					if reloaded, ok := board.Find(kind, id); ok {
						now = reloaded.Status
					}
					fmt.Fprintf(cCtx.App.Writer, "%s %s is now %s\n", kind.Label(), id, now.Label())
					return nil
				},
			},
			{
				Name:  "users",
				Usage: "list registered users",
				Action: func(cCtx *cli.Context) error {
					users, env, err := a.client.Users(cCtx.Context)
					if err := check(env, err, "Failed to load users"); err != nil {
						return err
					}
					tw := tabwriter.NewWriter(cCtx.App.Writer, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE")
					for _, u := range users {
						fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role)
					}
					return tw.Flush()
				},
			},
		},
	}
}

func (a *app) commentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "comments",
		Usage: "read and write report comments",
		Before: func(cCtx *cli.Context) error {
			_, err := a.requireSession()
			return err
		},
		Subcommands: []*cli.Command{
			{
				Name:      "list",
				ArgsUsage: "<kind> <id>",
				Action: func(cCtx *cli.Context) error {
					kind, id, err := kindAndID(cCtx)
					if err != nil {
						return err
					}
					comments, env, err := a.client.Comments(cCtx.Context, kind, id)
					if err := check(env, err, "Failed to load comments"); err != nil {
						return err
					}
					tw := tabwriter.NewWriter(cCtx.App.Writer, 0, 4, 2, ' ', 0)
					for _, c := range comments {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.CreatedAt.Format("2006-01-02 15:04"), c.AuthorName, c.Type, c.Text)
					}
					return tw.Flush()
				},
			},
			{
				Name:      "add",
				ArgsUsage: "<kind> <id> <text>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Usage: "user, admin or official"},
				},
				Action: func(cCtx *cli.Context) error {
					kind, id, err := kindAndID(cCtx)
					if err != nil {
						return err
					}
					text := strings.Join(cCtx.Args().Slice()[2:], " ")
					if strings.TrimSpace(text) == "" {
						return cli.Exit("comment text is required", 2)
					}
					var commentType models.CommentKind
					if raw := cCtx.String("type"); raw != "" {
						ct, ok := models.ParseCommentKind(raw)
						if !ok {
							return cli.Exit(fmt.Sprintf("unknown comment type %q", raw), 2)
						}
						commentType = ct
					}
					env, err := a.client.AddComment(cCtx.Context, kind, id, text, commentType)
					if err := check(env, err, "Failed to add comment"); err != nil {
						return err
					}
					fmt.Fprintln(cCtx.App.Writer, "comment added")
					return nil
				},
			},
			{
				Name:      "delete",
				ArgsUsage: "<comment-id>",
				Action: func(cCtx *cli.Context) error {
					env, err := a.client.DeleteComment(cCtx.Context, cCtx.Args().First())
					if err := check(env, err, "Failed to delete comment"); err != nil {
						return err
					}
					fmt.Fprintln(cCtx.App.Writer, "comment deleted")
					return nil
				},
			},
		},
	}
}

func (a *app) upvoteCommand() *cli.Command {
	return &cli.Command{
		Name:      "upvote",
		Usage:     "upvote a report",
		ArgsUsage: "<kind> <id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "remove", Usage: "take your upvote back"},
			&cli.BoolFlag{Name: "toggle", Usage: "flip your upvote"},
		},
		Action: func(cCtx *cli.Context) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			kind, id, err := kindAndID(cCtx)
			if err != nil {
				return err
			}
			call := a.client.Upvote
			switch {
			case cCtx.Bool("toggle"):
				call = a.client.ToggleUpvote
			case cCtx.Bool("remove"):
				call = a.client.RemoveUpvote
			}
			up, env, err := call(cCtx.Context, kind, id)
			if err := check(env, err, "Failed to update upvote"); err != nil {
				return err
			}
			fmt.Fprintf(cCtx.App.Writer, "%d upvotes (yours: %t)\n", up.Count, up.UserUpvoted)
			return nil
		},
	}
}
