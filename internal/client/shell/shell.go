// Package shell is the interactive terminal front end of the marketplace
// client. It only reads input and prints results; identity and request
// handling belong to the session manager and the gateway.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/ProjectMarket/internal/client"
	"github.com/atinyakov/ProjectMarket/internal/client/gateway"
	"github.com/atinyakov/ProjectMarket/internal/client/session"
	"github.com/atinyakov/ProjectMarket/internal/logger"
	"github.com/atinyakov/ProjectMarket/internal/models"
)

const prompt = "market> "

const helpText = `Available commands:
  help                              show this list
  whoami                            show the logged-in user
  login                             log in
  register                          create an account
  logout                            log out
  search <query>                    search uploaded projects
  suggest <query>                   ask the assistant for project ideas
  websites <query>                  ask the assistant for relevant websites
  improve <idea>                    ask the assistant to critique an idea
  chat <message>                    talk to the assistant
  upload                            upload a project submission
  submissions                       list submissions
  download <id> [file_url] [out]    download a submission file
  exit                              quit`

// Shell reads commands line by line and runs them.
type Shell struct {
	session *session.Manager
	api     *gateway.Client
	in      *bufio.Scanner
	out     io.Writer
	log     *zap.Logger

	// dir is where downloads are saved when no path is given.
	dir string
	// known holds the submissions from the last listing, by id.
	known map[string]models.Submission
	// loggingOut suppresses the expiry notice for a user-initiated logout.
	loggingOut bool
}

// New returns a Shell over app reading from in and writing to out.
func New(app *client.App, in io.Reader, out io.Writer, log *zap.Logger) *Shell {
	s := &Shell{
		session: app.Session,
		api:     app.API,
		in:      bufio.NewScanner(in),
		out:     out,
		log:     logger.OrNop(log),
		dir:     ".",
		known:   make(map[string]models.Submission),
	}
	var wasAuthenticated bool
	app.Session.Subscribe(func(st session.State) {
		if wasAuthenticated && !st.Authenticated && !s.loggingOut {
			s.println("Your session has ended. Please log in again.")
		}
		wasAuthenticated = st.Authenticated
	})
	return s
}

// WithDownloadDir sets where downloads are saved by default.
func (s *Shell) WithDownloadDir(dir string) *Shell {
	s.dir = dir
	return s
}

// Run processes commands until exit, end of input or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(s.out, prompt)
		if !s.in.Scan() {
			return s.in.Err()
		}
		line := strings.TrimSpace(s.in.Text())
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		if cmd == "exit" || cmd == "quit" {
			s.println("Bye")
			return nil
		}
		if err := s.dispatch(ctx, cmd, rest); err != nil {
			s.printErr(err)
		}
	}
}

func (s *Shell) dispatch(ctx context.Context, cmd, rest string) error {
	switch cmd {
	case "help":
		s.println(helpText)
	case "whoami":
		s.whoami()
	case "login":
		return s.login(ctx)
	case "register":
		return s.register(ctx)
	case "logout":
		return s.logout(ctx)
	case "search":
		return s.search(ctx, rest)
	case "suggest":
		return s.suggest(ctx, rest)
	case "websites":
		return s.websites(ctx, rest)
	case "improve":
		return s.improve(ctx, rest)
	case "chat":
		return s.chat(ctx, rest)
	case "upload":
		return s.upload(ctx)
	case "submissions":
		return s.submissions(ctx)
	case "download":
		return s.download(ctx, strings.Fields(rest))
	default:
		s.println("Unknown command. Type 'help' for a list of commands.")
	}
	return nil
}

func (s *Shell) whoami() {
	st := s.session.State()
	if !st.Authenticated {
		s.println("Not logged in")
		return
	}
	s.println(describeUser(st.Profile))
}

func (s *Shell) login(ctx context.Context) error {
	email := s.ask("Email: ")
	password := s.ask("Password: ")
	if _, err := s.session.Login(ctx, email, password); err != nil {
		return err
	}
	s.println("Logged in as " + describeUser(s.session.State().Profile))
	return nil
}

func (s *Shell) register(ctx context.Context) error {
	name := s.ask("Name: ")
	email := s.ask("Email: ")
	password := s.ask("Password: ")
	role := s.ask("Role (student/teacher/examiner): ")

	doc, err := s.session.Register(ctx, name, email, password, models.Role(strings.ToLower(role)))
	if err != nil {
		return err
	}
	msg, _ := doc["message"].(string)
	if msg == "" {
		msg = "Registration successful."
	}
	s.println(msg)
	s.println("Please log in.")
	return nil
}

func (s *Shell) logout(ctx context.Context) error {
	s.loggingOut = true
	defer func() { s.loggingOut = false }()
	if err := s.session.Logout(ctx); err != nil {
		s.log.Warn("failed to clear local session", zap.Error(err))
	}
	s.println("Logged out")
	return nil
}

func (s *Shell) search(ctx context.Context, query string) error {
	results, err := s.api.SearchProjects(ctx, query)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		s.println("No matching projects found")
		return nil
	}
	for _, r := range results {
		s.remember(r.Submission)
		s.printf("[%3.0f%%] %s\n", r.Score, formatSubmission(r.Submission))
	}
	return nil
}

func (s *Shell) suggest(ctx context.Context, query string) error {
	suggestions, err := s.api.Suggestions(ctx, query)
	if err != nil {
		return err
	}
	if len(suggestions) == 0 {
		s.println("No suggestions")
		return nil
	}
	for i, sg := range suggestions {
		s.println(formatSuggestion(i+1, sg))
	}
	return nil
}

func (s *Shell) websites(ctx context.Context, query string) error {
	sites, err := s.api.Websites(ctx, query)
	if err != nil {
		return err
	}
	if len(sites) == 0 {
		s.println("No websites found")
		return nil
	}
	for _, w := range sites {
		s.println(formatWebsite(w))
	}
	return nil
}

func (s *Shell) improve(ctx context.Context, idea string) error {
	doc, err := s.api.Improve(ctx, idea)
	if err != nil {
		return err
	}
	s.println(formatImprovement(doc))
	return nil
}

func (s *Shell) chat(ctx context.Context, message string) error {
	reply, err := s.api.Chat(ctx, message)
	if err != nil {
		return err
	}
	s.println("Assistant: " + reply)
	return nil
}

func (s *Shell) upload(ctx context.Context) error {
	path := s.ask("File path: ")
	req := gateway.UploadRequest{
		Title:       s.ask("Project title: "),
		Description: s.ask("Description: "),
		StudentName: s.ask("Student name: "),
		StudentID:   s.ask("Student ID: "),
		Abstract:    s.ask("Abstract: "),
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to read file %q: %w", path, err)
		}
		defer f.Close()
		req.File = f
		req.FileName = filepath.Base(path)
	}

	doc, err := s.api.Upload(ctx, req)
	if err != nil {
		return err
	}
	msg, _ := doc["message"].(string)
	if msg == "" {
		msg = "File uploaded successfully"
	}
	s.println(msg)
	return nil
}

func (s *Shell) submissions(ctx context.Context) error {
	files, err := s.api.Submissions(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		s.println("No submissions yet")
		return nil
	}
	for _, f := range files {
		s.remember(f)
		s.println(formatSubmission(f))
	}
	return nil
}

// download takes <id> [file_url] [out]. Without a file_url, the one from the
// last listing is used as the fallback.
func (s *Shell) download(ctx context.Context, args []string) error {
	if len(args) == 0 {
		s.println("Usage: download <id> [file_url] [out]")
		return nil
	}
	id := args[0]
	var fileURL, out string
	if len(args) > 1 {
		fileURL = args[1]
	}
	if len(args) > 2 {
		out = args[2]
	}
	if fileURL == "" {
		fileURL = s.known[id].FileURL
	}

	f, err := s.api.DownloadWithFallback(ctx, id, fileURL)
	if err != nil {
		return err
	}
	if out == "" {
		out = filepath.Join(s.dir, filepath.Base(f.Name))
	}
	if err := os.WriteFile(out, f.Data, 0o644); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	s.printf("Saved %d bytes to %s\n", len(f.Data), out)
	return nil
}

func (s *Shell) remember(sub models.Submission) {
	if sub.ID != "" {
		s.known[string(sub.ID)] = sub
	}
}

// ask prints label and returns the next trimmed input line.
func (s *Shell) ask(label string) string {
	fmt.Fprint(s.out, label)
	if !s.in.Scan() {
		return ""
	}
	return strings.TrimSpace(s.in.Text())
}

func (s *Shell) printErr(err error) {
	var verr *gateway.ValidationError
	if errors.As(err, &verr) {
		s.println(verr.Message)
		return
	}
	s.log.Debug("command failed", zap.Error(err))
	s.println("Error: " + err.Error())
}

func (s *Shell) println(text string) {
	fmt.Fprintln(s.out, text)
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}
