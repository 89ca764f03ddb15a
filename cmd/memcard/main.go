package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/memcardhq/memcard/internal/cards"
	"github.com/memcardhq/memcard/internal/chat"
	"github.com/memcardhq/memcard/internal/config"
	"github.com/memcardhq/memcard/internal/export"
	"github.com/memcardhq/memcard/internal/jobs"
	"github.com/memcardhq/memcard/internal/pdf"
	"github.com/memcardhq/memcard/internal/scanner"
	"github.com/memcardhq/memcard/internal/session"
	"github.com/memcardhq/memcard/internal/store"
	"github.com/memcardhq/memcard/pkg/logger"
	"github.com/memcardhq/memcard/pkg/models"
	"github.com/memcardhq/memcard/pkg/version"
)

const usageText = `memcard - turn PDF highlights into flashcards

Usage:
  memcard <command> [flags]

Commands:
  login    sign in to the MemCard server
  logout   discard the saved session
  submit   upload a PDF (or a directory of PDFs) and queue generation jobs
  jobs     show your generation jobs; --watch follows live updates
  rate     rate the cards of a finished job interactively
  export   export a job's cards to Obsidian or Anki format
  chat     ask the document chat service for a meta-document
  version  print version information

Run "memcard <command> --help" for command flags.
`

type app struct {
	cfg  *config.Config
	sess *session.Session
	log  *logger.Logger
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "login":
		err = runLogin(args)
	case "logout":
		err = runLogout(args)
	case "submit":
		err = runSubmit(args)
	case "jobs":
		err = runJobs(args)
	case "rate":
		err = runRate(args)
	case "export":
		err = runExport(args)
	case "chat":
		err = runChat(args)
	case "version":
		fmt.Print(version.GetDetailedVersionInfo())
	case "help", "--help", "-h":
		fmt.Print(usageText)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usageText)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "memcard: %v\n", err)
		os.Exit(1)
	}
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ExitOnError)
	fs.String("config", defaultConfigPath(), "path to config file")
	fs.BoolP("verbose", "v", false, "enable verbose logging")
	return fs
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "memcard.yaml"
	}
	return home + "/.memcard/config.yaml"
}

func setup(fs *pflag.FlagSet) (*app, error) {
	configPath, _ := fs.GetString("config")
	verbose, _ := fs.GetBool("verbose")

	log := logger.New(
		logger.WithPrefix("[memcard] "),
		logger.WithVerbose(verbose),
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	sess, err := session.Load(cfg.AuthFile)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, sess: sess, log: log}, nil
}

func (a *app) storeClient() *store.Client {
	return store.New(a.cfg.ServerURL, store.WithLogger(a.log))
}

// signalContext is cancelled on SIGINT/SIGTERM so live subscriptions
// and in-flight requests get released.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runLogin(args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (prompted if omitted)")
	fs.Parse(args)

	a, err := setup(fs)
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	if *email == "" {
		fmt.Print("Email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
		*email = strings.TrimSpace(line)
	}
	if *password == "" {
		fmt.Print("Password: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		*password = strings.TrimRight(line, "\r\n")
	}

	ctx, cancel := signalContext()
	defer cancel()

	sess, err := a.storeClient().AuthWithPassword(ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := sess.Save(a.cfg.AuthFile); err != nil {
		return err
	}

	a.log.Info("Signed in as %s", sess.Email)
	return nil
}

func runLogout(args []string) error {
	fs := newFlagSet("logout")
	fs.Parse(args)

	a, err := setup(fs)
	if err != nil {
		return err
	}
	if err := session.Clear(a.cfg.AuthFile); err != nil {
		return err
	}
	a.log.Info("Signed out")
	return nil
}

func runSubmit(args []string) error {
	fs := newFlagSet("submit")
	file := fs.String("file", "", "PDF file to submit")
	dir := fs.String("dir", "", "directory of PDFs to submit")
	fs.Parse(args)

	if (*file == "") == (*dir == "") {
		return fmt.Errorf("exactly one of --file or --dir is required")
	}

	a, err := setup(fs)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	preflight := pdf.NewPreflight(a.cfg.MaxUploadBytes, a.log)
	service := jobs.NewService(a.storeClient(), preflight, a.log)

	var paths []string
	if *file != "" {
		paths = []string{*file}
	} else {
		found, err := scanner.New(a.log).FindPDFs(ctx, *dir)
		if err != nil {
			return err
		}
		a.log.Info("Found %d PDFs in %s", len(found), *dir)
		for _, f := range found {
			paths = append(paths, f.AbsolutePath)
		}
	}

	var failed int
	for _, path := range paths {
		job, err := service.Submit(ctx, a.sess, path)
		if err != nil {
			if errors.Is(err, session.ErrAuthRequired) || ctx.Err() != nil {
				return err
			}
			a.log.Warn("Skipping %s: %v", path, err)
			failed++
			continue
		}
		fmt.Printf("queued job %s for %s\n", job.ID, filepath.Base(path))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d PDFs could not be submitted", failed, len(paths))
	}
	return nil
}

func runJobs(args []string) error {
	fs := newFlagSet("jobs")
	watch := fs.BoolP("watch", "w", false, "follow live job updates until interrupted")
	fs.Parse(args)

	a, err := setup(fs)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	client := a.storeClient()

	if !*watch {
		list, err := jobs.FetchAll(ctx, client, a.sess)
		if err != nil {
			return err
		}
		printJobList(list)
		return nil
	}

	watcher := jobs.NewWatcher(client, a.log)
	done := make(chan error, 1)
	go func() {
		done <- watcher.Run(ctx, a.sess)
	}()

	for {
		select {
		case <-watcher.Changed():
			printJobList(watcher.Snapshot())
		case err := <-done:
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		}
	}
}

func printJobList(list []jobs.Entry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "JOB ID\tPDF NAME\tSTATUS\tSUBMITTED AT\tACTION")
	for _, e := range list {
		action := "-"
		if e.CardsReady {
			action = "memcard rate --job " + e.ID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.PDFName, e.Status, e.SubmittedAt.Local().Format("2006-01-02 15:04:05"), action)
	}
	w.Flush()
	fmt.Println()
}

const rateHelp = `Commands: [n]ext [p]rev [f]lip 1-7 rate, [c]lear rating, [s]elect/[d]rop for export, [q]uit`

func runRate(args []string) error {
	fs := newFlagSet("rate")
	jobID := fs.String("job", "", "id of the finished job to rate")
	fs.Parse(args)

	if *jobID == "" {
		return fmt.Errorf("--job is required")
	}

	a, err := setup(fs)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	deck, err := cards.Load(ctx, a.storeClient(), a.sess, *jobID, a.log)
	if err != nil {
		return err
	}
	if deck.Len() == 0 {
		fmt.Println("No flashcards were found for this job; they might still be processing.")
		return nil
	}

	fmt.Printf("Loaded %d cards for job %s\n%s\n\n", deck.Len(), *jobID, rateHelp)

	reader := bufio.NewReader(os.Stdin)
	idx := 0
	flipped := false

	for {
		card := deck.Card(idx)
		side, text := "front", card.Front
		if flipped {
			side, text = "back", card.Back
		}
		marker := " "
		if !card.Selected {
			marker = "x"
		}
		fmt.Printf("[%d/%d] (%s) rating=%s selected=%s cluster=%s\n  %s\n> ",
			idx+1, deck.Len(), side, card.Rating.Label(), marker, card.Color, text)

		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}

		switch cmd := strings.TrimSpace(line); cmd {
		case "q":
			return nil
		case "n", "":
			if idx < deck.Len()-1 {
				idx++
				flipped = false
			}
		case "p":
			if idx > 0 {
				idx--
				flipped = false
			}
		case "f":
			flipped = !flipped
		case "c":
			if err := deck.Rate(ctx, a.sess, card.ID, models.RatingNone); err != nil {
				fmt.Printf("could not clear rating: %v\n", err)
			}
		case "s":
			deck.SetSelected(card.ID, true)
		case "d":
			deck.SetSelected(card.ID, false)
		case "?":
			fmt.Println(rateHelp)
		default:
			n, convErr := strconv.Atoi(cmd)
			if convErr != nil || n < 1 || n > 7 {
				fmt.Println(rateHelp)
				continue
			}
			if err := deck.Rate(ctx, a.sess, card.ID, models.Rating(n)); err != nil {
				fmt.Printf("could not save rating: %v\n", err)
			}
		}
	}
}

func runExport(args []string) error {
	fs := newFlagSet("export")
	jobID := fs.String("job", "", "id of the job to export")
	formatName := fs.String("format", "obsidian", "export format: obsidian or anki")
	toStdout := fs.Bool("stdout", false, "print to stdout instead of writing a file")
	fs.Parse(args)

	if *jobID == "" {
		return fmt.Errorf("--job is required")
	}

	format, err := export.ParseFormat(*formatName)
	if err != nil {
		return err
	}

	a, err := setup(fs)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	deck, err := cards.Load(ctx, a.storeClient(), a.sess, *jobID, a.log)
	if err != nil {
		return err
	}

	selected := deck.SelectedCards()
	if len(selected) == 0 {
		return fmt.Errorf("job %s has no cards to export", *jobID)
	}

	if *toStdout {
		content, err := export.Render(format, selected)
		if err != nil {
			return err
		}
		fmt.Println(content)
		return nil
	}

	path, err := export.WriteFile(a.cfg.ExportDir, *jobID, format, selected)
	if err != nil {
		return err
	}
	a.log.Info("Exported %d cards to %s", len(selected), path)
	return nil
}

func runChat(args []string) error {
	fs := newFlagSet("chat")
	query := fs.String("query", "", "question for the document chat service")
	outPath := fs.String("out", "", "write the meta-document to this file instead of stdout")
	fs.Parse(args)

	if *query == "" {
		return fmt.Errorf("--query is required")
	}

	a, err := setup(fs)
	if err != nil {
		return err
	}
	if a.cfg.ChatServiceURL == "" {
		return fmt.Errorf("chat_service_url is not configured")
	}

	ctx, cancel := signalContext()
	defer cancel()

	doc, err := chat.NewClient(a.cfg.ChatServiceURL, a.log).GenerateMetadocument(ctx, *query)
	if err != nil {
		return err
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, []byte(doc), 0644); err != nil {
			return fmt.Errorf("failed to write meta-document: %w", err)
		}
		a.log.Info("Meta-document written to %s", *outPath)
		return nil
	}

	fmt.Println(doc)
	return nil
}
