// Package console is the interactive menu front end. Every menu item maps to
// exactly one registry operation on behalf of the session's identity.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/IgorGrieder/linkquota/internal/processing/links"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type LinkService interface {
	Create(ctx context.Context, in links.CreateInput) (links.Link, error)
	Redirect(ctx context.Context, code string) (string, error)
	Stats(ctx context.Context, code string, requester uuid.UUID) (links.Stats, error)
	Delete(ctx context.Context, code string, requester uuid.UUID) bool
	LinksOf(ctx context.Context, owner uuid.UUID) []links.Stats
}

type Options struct {
	BaseURL           string
	DefaultClickLimit int
	DefaultTTL        time.Duration
	Opener            Opener
	Logger            *zap.Logger
}

type Console struct {
	svc  LinkService
	user uuid.UUID
	in   io.Reader
	out  io.Writer

	baseURL      string
	defaultLimit int
	defaultTTL   time.Duration
	opener       Opener
	log          *zap.Logger
	now          func() time.Time

	// readerDone is closed when the input goroutine of the latest Run exits.
	readerDone chan struct{}
}

func New(svc LinkService, user uuid.UUID, in io.Reader, out io.Writer, opts Options) *Console {
	if opts.DefaultClickLimit <= 0 {
		opts.DefaultClickLimit = 100
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 24 * time.Hour
	}
	if opts.Opener == nil {
		opts.Opener = BrowserOpener{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Console{
		svc:          svc,
		user:         user,
		in:           in,
		out:          out,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		defaultLimit: opts.DefaultClickLimit,
		defaultTTL:   opts.DefaultTTL,
		opener:       opts.Opener,
		log:          opts.Logger,
		now:          time.Now,
	}
}

var errInputClosed = errors.New("input closed")

// Run serves the menu until the user exits, the input ends or ctx is
// canceled. Only the cancellation is reported as an error.
//
// Input is read by a goroutine that may still be blocked in a read of c.in
// when Run returns. It exits as soon as that read completes and never
// delivers the line.
func (c *Console) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	c.readerDone = make(chan struct{})
	go c.readLines(ctx, lines, c.readerDone)

	prompt := func(label string) (string, error) {
		fmt.Fprint(c.out, label)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return "", errInputClosed
			}
			return strings.TrimSpace(line), nil
		}
	}

	c.welcome()
	for {
		c.menu()
		choice, err := prompt("> ")
		if err != nil {
			return c.finish(err)
		}

		switch choice {
		case "1":
			err = c.create(ctx, prompt, false)
		case "2":
			err = c.create(ctx, prompt, true)
		case "3":
			err = c.redirect(ctx, prompt)
		case "4":
			err = c.stats(ctx, prompt)
		case "5":
			err = c.remove(ctx, prompt)
		case "6":
			c.whoami(ctx)
		case "0":
			fmt.Fprintln(c.out, "Bye.")
			return nil
		case "":
		default:
			fmt.Fprintln(c.out, "Unknown choice, try again.")
		}
		if err != nil {
			return c.finish(err)
		}
	}
}

func (c *Console) finish(err error) error {
	if errors.Is(err, errInputClosed) {
		return nil
	}
	return err
}

func (c *Console) readLines(ctx context.Context, lines chan<- string, done chan<- struct{}) {
	defer close(done)
	defer close(lines)

	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		c.log.Warn("console input failed", zap.Error(err))
	}
}

type promptFunc func(label string) (string, error)

func (c *Console) welcome() {
	fmt.Fprintln(c.out, "linkquota: short links with a click quota and an expiry")
	fmt.Fprintf(c.out, "Your user id: %s\n", c.user)
	fmt.Fprintf(c.out, "Short links are served at %s/<code>\n", c.baseURL)
}

func (c *Console) menu() {
	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "1. Create a short link (limit: %d clicks)\n", c.defaultLimit)
	fmt.Fprintln(c.out, "2. Create a short link with a custom limit")
	fmt.Fprintln(c.out, "3. Follow a short link (opens the browser)")
	fmt.Fprintln(c.out, "4. Show link statistics")
	fmt.Fprintln(c.out, "5. Delete a short link")
	fmt.Fprintln(c.out, "6. Show my user id and links")
	fmt.Fprintln(c.out, "0. Exit")
}

func (c *Console) create(ctx context.Context, prompt promptFunc, customLimit bool) error {
	target, err := prompt("Long URL: ")
	if err != nil {
		return err
	}

	limit := c.defaultLimit
	if customLimit {
		raw, err := prompt("Click limit: ")
		if err != nil {
			return err
		}
		limit, err = strconv.Atoi(raw)
		if err != nil {
			fmt.Fprintln(c.out, "error: the click limit must be a whole number")
			return nil
		}
		if limit <= 0 {
			fmt.Fprintln(c.out, "error: the click limit must be positive")
			return nil
		}
	}

	link, err := c.svc.Create(ctx, links.CreateInput{
		URL:        target,
		Owner:      c.user,
		ClickLimit: limit,
		TTL:        c.defaultTTL,
	})
	if err != nil {
		c.printError(err)
		return nil
	}

	fmt.Fprintf(c.out, "Short link: %s\n", c.shortURL(link.Code))
	fmt.Fprintf(c.out, "Valid for %s, until %s\n", c.defaultTTL, link.ExpiresAt.Format(time.RFC3339))
	fmt.Fprintf(c.out, "Click limit: %d\n", link.ClickLimit)
	return nil
}

func (c *Console) redirect(ctx context.Context, prompt promptFunc) error {
	code, err := prompt("Short code: ")
	if err != nil {
		return err
	}

	target, err := c.svc.Redirect(ctx, code)
	if err != nil {
		c.printError(err)
		return nil
	}

	fmt.Fprintf(c.out, "Redirecting to %s\n", target)
	if err := c.opener.Open(target); err != nil {
		c.log.Debug("browser open failed", zap.Error(err))
		fmt.Fprintf(c.out, "Could not open a browser, visit the address manually: %s\n", target)
		return nil
	}
	fmt.Fprintln(c.out, "Browser opened")
	return nil
}

func (c *Console) stats(ctx context.Context, prompt promptFunc) error {
	code, err := prompt("Short code: ")
	if err != nil {
		return err
	}

	st, err := c.svc.Stats(ctx, code, c.user)
	if err != nil {
		c.printError(err)
		return nil
	}

	c.printStats(st)
	return nil
}

func (c *Console) remove(ctx context.Context, prompt promptFunc) error {
	code, err := prompt("Short code to delete: ")
	if err != nil {
		return err
	}

	if c.svc.Delete(ctx, code, c.user) {
		fmt.Fprintln(c.out, "Short link deleted")
	} else {
		fmt.Fprintln(c.out, "Could not delete the link: it does not exist or belongs to someone else")
	}
	return nil
}

func (c *Console) whoami(ctx context.Context) {
	owned := c.svc.LinksOf(ctx, c.user)

	fmt.Fprintf(c.out, "User id: %s\n", c.user)
	fmt.Fprintln(c.out, "Keep this id to manage your links from another session")
	if len(owned) == 0 {
		fmt.Fprintln(c.out, "No live links")
		return
	}
	fmt.Fprintf(c.out, "Live links (%d):\n", len(owned))
	for _, st := range owned {
		fmt.Fprintf(c.out, "  %s  %d/%d  %s  -> %s\n", c.shortURL(st.Code), st.Clicks, st.ClickLimit, c.status(st), st.URL)
	}
}

func (c *Console) printStats(st links.Stats) {
	fmt.Fprintln(c.out, "Link statistics:")
	fmt.Fprintf(c.out, "  original URL: %s\n", st.URL)
	fmt.Fprintf(c.out, "  short link:   %s\n", c.shortURL(st.Code))
	fmt.Fprintf(c.out, "  clicks:       %d/%d\n", st.Clicks, st.ClickLimit)
	fmt.Fprintf(c.out, "  created:      %s\n", st.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(c.out, "  expires:      %s\n", st.ExpiresAt.Format(time.RFC3339))
	fmt.Fprintf(c.out, "  status:       %s\n", c.status(st))
}

func (c *Console) status(st links.Stats) string {
	switch {
	case st.Valid:
		return "active"
	case !c.now().Before(st.ExpiresAt):
		return "expired"
	case st.Remaining == 0:
		return "click limit reached"
	default:
		return "inactive"
	}
}

func (c *Console) printError(err error) {
	fmt.Fprintf(c.out, "error: %v\n", err)
}

func (c *Console) shortURL(code string) string {
	return c.baseURL + "/" + code
}
