package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/IgorGrieder/linkquota/internal/processing/identity"
	"github.com/IgorGrieder/linkquota/internal/processing/links"
	"github.com/google/uuid"
)

type fakeOpener struct {
	opened []string
	err    error
}

func (o *fakeOpener) Open(url string) error {
	o.opened = append(o.opened, url)
	return o.err
}

type session struct {
	registry   *links.Registry
	identities *identity.Registry
	user       uuid.UUID
	opener     *fakeOpener
}

func newSession() *session {
	identities := identity.NewRegistry()
	return &session{
		registry:   links.NewRegistry(identities, links.Options{}),
		identities: identities,
		user:       identities.CreateIdentity(),
		opener:     &fakeOpener{},
	}
}

func (s *session) run(t *testing.T, input string) string {
	t.Helper()

	var out bytes.Buffer
	c := New(s.registry, s.user, strings.NewReader(input), &out, Options{
		BaseURL:           "http://localhost:8080/",
		DefaultClickLimit: 100,
		DefaultTTL:        24 * time.Hour,
		Opener:            s.opener,
	})
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return out.String()
}

var shortLinkLine = regexp.MustCompile(`Short link: http://localhost:8080/([0-9A-Za-z]+)`)

func createdCode(t *testing.T, out string) string {
	t.Helper()
	m := shortLinkLine.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no short link in output:\n%s", out)
	}
	return m[1]
}

func TestConsoleCreateWithDefaultLimit(t *testing.T) {
	s := newSession()

	out := s.run(t, "1\nhttps://example.com/page\n0\n")

	code := createdCode(t, out)
	if !strings.Contains(out, "Click limit: 100") {
		t.Errorf("output does not show the default limit:\n%s", out)
	}
	st, err := s.registry.Stats(context.Background(), code, s.user)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.ClickLimit != 100 || st.URL != "https://example.com/page" {
		t.Errorf("stats = %+v", st)
	}
	if !strings.Contains(out, "Bye.") {
		t.Error("exit message missing")
	}
}

func TestConsoleCreateWithCustomLimit(t *testing.T) {
	tests := []struct {
		name    string
		limit   string
		want    string
		created bool
	}{
		{"positive", "3", "Click limit: 3", true},
		{"zero", "0", "must be positive", false},
		{"negative", "-2", "must be positive", false},
		{"not a number", "many", "whole number", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession()
			out := s.run(t, "2\nhttps://example.com\n"+tt.limit+"\n0\n")

			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
			if got := s.registry.Len() == 1; got != tt.created {
				t.Errorf("link created = %v, want %v", got, tt.created)
			}
		})
	}
}

func TestConsoleCreateRejectsBadURL(t *testing.T) {
	s := newSession()

	out := s.run(t, "1\nnot a url\n0\n")

	if !strings.Contains(out, "error: invalid input") {
		t.Errorf("output does not report the invalid url:\n%s", out)
	}
	if s.registry.Len() != 0 {
		t.Error("invalid url was registered")
	}
}

func TestConsoleRedirectOpensBrowser(t *testing.T) {
	s := newSession()
	out := s.run(t, "2\nhttps://example.com/x\n1\n0\n")
	code := createdCode(t, out)

	out = s.run(t, "3\n"+code+"\n3\n"+code+"\n0\n")

	if len(s.opener.opened) != 1 || s.opener.opened[0] != "https://example.com/x" {
		t.Errorf("opened = %v", s.opener.opened)
	}
	if !strings.Contains(out, "Browser opened") {
		t.Errorf("missing confirmation:\n%s", out)
	}
	if !strings.Contains(out, "error: link click quota exceeded") {
		t.Errorf("second follow should hit the quota:\n%s", out)
	}
}

func TestConsoleRedirectWithoutBrowser(t *testing.T) {
	s := newSession()
	s.opener.err = errors.New("no display")
	code := createdCode(t, s.run(t, "1\nhttps://example.com/y\n0\n"))

	out := s.run(t, "3\n"+code+"\n0\n")

	if !strings.Contains(out, "visit the address manually: https://example.com/y") {
		t.Errorf("fallback message missing:\n%s", out)
	}
}

func TestConsoleStatsAndDelete(t *testing.T) {
	s := newSession()
	code := createdCode(t, s.run(t, "1\nhttps://example.com/z\n0\n"))

	out := s.run(t, "4\n"+code+"\n5\n"+code+"\n5\n"+code+"\n4\n"+code+"\n0\n")

	for _, want := range []string{
		"original URL: https://example.com/z",
		"clicks:       0/100",
		"status:       active",
		"Short link deleted",
		"Could not delete the link",
		"error: link not found",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConsoleStatsOfForeignLink(t *testing.T) {
	s := newSession()
	other := s.identities.CreateIdentity()
	link, err := s.registry.Create(context.Background(), links.CreateInput{
		URL: "https://example.com", Owner: other, ClickLimit: 1, TTL: time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}

	out := s.run(t, "4\n"+link.Code+"\n5\n"+link.Code+"\n0\n")

	if !strings.Contains(out, "error: link belongs to another identity") {
		t.Errorf("foreign stats not refused:\n%s", out)
	}
	if s.registry.Len() != 1 {
		t.Error("foreign link was deleted")
	}
}

func TestConsoleWhoAmI(t *testing.T) {
	s := newSession()
	s.run(t, "1\nhttps://example.com/a\n1\nhttps://example.com/b\n0\n")

	out := s.run(t, "6\n0\n")

	if !strings.Contains(out, "User id: "+s.user.String()) {
		t.Errorf("user id missing:\n%s", out)
	}
	if !strings.Contains(out, "Live links (2)") {
		t.Errorf("link listing missing:\n%s", out)
	}
}

func TestConsoleUnknownChoiceAndEOF(t *testing.T) {
	s := newSession()

	out := s.run(t, "9\n")

	if !strings.Contains(out, "Unknown choice") {
		t.Errorf("unknown choice not reported:\n%s", out)
	}
}

func TestConsoleStopsOnCancel(t *testing.T) {
	s := newSession()
	pr, pw := io.Pipe()
	defer pw.Close()

	c := New(s.registry, s.user, pr, io.Discard, Options{Opener: s.opener})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestConsoleReaderExitsAfterSessionEnds(t *testing.T) {
	s := newSession()
	pr, pw := io.Pipe()
	defer pw.Close()

	c := New(s.registry, s.user, pr, io.Discard, Options{Opener: s.opener})

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()
	go func() { _, _ = io.WriteString(pw, "0\n") }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after exit")
	}

	go func() { _, _ = io.WriteString(pw, "typed after exit\n") }()

	select {
	case <-c.readerDone:
	case <-time.After(2 * time.Second):
		t.Fatal("input goroutine still running after the session ended")
	}
}

func TestStatusLabels(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	c := New(nil, uuid.New(), strings.NewReader(""), io.Discard, Options{})
	c.now = func() time.Time { return now }

	tests := []struct {
		name string
		st   links.Stats
		want string
	}{
		{"valid", links.Stats{Valid: true, ExpiresAt: now.Add(time.Hour), Remaining: 1}, "active"},
		{"expired wins over quota", links.Stats{ExpiresAt: now, Remaining: 0}, "expired"},
		{"quota", links.Stats{ExpiresAt: now.Add(time.Hour), Remaining: 0}, "click limit reached"},
		{"inactive", links.Stats{ExpiresAt: now.Add(time.Hour), Remaining: 5}, "inactive"},
	}
	for _, tt := range tests {
		if got := c.status(tt.st); got != tt.want {
			t.Errorf("%s: status = %q, want %q", tt.name, got, tt.want)
		}
	}
}
