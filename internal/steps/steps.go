// Package steps is the built-in step library: browser actions and
// assertions phrased as sentences.
package steps

import (
	"context"
	"strings"
	"time"

	"github.com/chriserin/b2b/internal/browser"
	"github.com/chriserin/b2b/internal/step"
)

var (
	lit = step.Literal
	str = step.String
)

type action func(ctx context.Context, s *browser.Session, args step.Args) step.Outcome

// onPage binds an action to the scenario's browser session.
func onPage(fn action) step.Executor {
	return func(ctx context.Context, args step.Args, sc step.Context) step.Outcome {
		s, err := browser.From(sc)
		if err != nil {
			return step.Fail(err.Error())
		}
		return fn(ctx, s, args)
	}
}

// Definitions returns the library in registration order.
func Definitions() []*step.Definition {
	return []*step.Definition{
		step.MustNew(onPage(search), lit("I"), lit("search"), lit("for"), step.Capture("query", str())),
		step.MustNew(onPage(openCopiedLink), lit("I"), lit("open"), lit("the"), lit("copied"), lit("link")),
		step.MustNew(onPage(find), lit("I"), lit("find"), step.Capture("text", str()), lit("in"), step.Capture("label", str())),
		step.MustNew(onPage(see), lit("I"), lit("see"), step.Capture("text", str())),
		step.MustNew(onPage(doNotSee), lit("I"), lit("do"), lit("not"), lit("see"), step.Capture("text", str())),
		step.MustNew(onPage(readTitle), lit("I"), lit("read"), lit("the"), step.Capture("text", str()), lit("in"), lit("the"), lit("browser"), lit("tab")),
		step.MustNew(onPage(click), lit("I"), lit("click"), step.Capture("text", str())),
		step.MustNew(onPage(open), lit("I"), lit("open"), step.Capture("url", step.URL())),
		step.MustNew(onPage(typeInto), lit("I"), lit("type"), step.Capture("text", str()), lit("into"), step.Capture("label", str())),
		step.MustNew(onPage(urlContains), lit("the"), lit("url"), lit("contains"), step.Capture("text", str())),
		step.MustNew(onPage(selectFile), lit("I"), lit("select"), lit("the"), lit("file"), step.Capture("filename", str())),
		step.MustNew(wait, lit("I"), lit("wait"), step.Capture("seconds", step.Number()), lit("seconds")),
		step.MustNew(onPage(reload), lit("I"), lit("reload"), lit("the"), lit("page")),
		step.MustNew(onPage(copyLink), lit("I"), lit("copy"), lit("the"), lit("link"), step.Capture("text", str())),
	}
}

// Register adds the library to r.
func Register(r *step.Registry) error {
	return r.Register(Definitions()...)
}

func NewRegistry() (*step.Registry, error) {
	r := step.NewRegistry()
	if err := Register(r); err != nil {
		return nil, err
	}
	return r, nil
}

func search(ctx context.Context, s *browser.Session, args step.Args) step.Outcome {
	if err := s.Search(ctx, args.String("query")); err != nil {
		return step.Failf("could not search for '%s': %v", args.String("query"), err)
	}
	return step.Pass()
}

func openCopiedLink(ctx context.Context, s *browser.Session, _ step.Args) step.Outcome {
	if err := s.OpenClipboard(ctx); err != nil {
		return step.Failf("could not open link from clipboard: the URL is '%s'\n%v", s.Clipboard(), err)
	}
	return step.Pass()
}

func find(_ context.Context, s *browser.Session, args step.Args) step.Outcome {
	text, label := args.String("text"), args.String("label")
	value, err := s.Value(label)
	if err != nil {
		return step.Failf("could not find input %s: %v", label, err)
	}
	if !strings.Contains(strings.ToLower(value), strings.ToLower(text)) {
		return step.Failf("input %s does not contain %s: %s", label, text, value)
	}
	return step.Pass()
}

func see(_ context.Context, s *browser.Session, args step.Args) step.Outcome {
	if !s.Contains(args.String("text")) {
		return step.Failf("can not find '%s'", args.String("text"))
	}
	return step.Pass()
}

func doNotSee(_ context.Context, s *browser.Session, args step.Args) step.Outcome {
	if s.Contains(args.String("text")) {
		return step.Failf("can see '%s' but should not", args.String("text"))
	}
	return step.Pass()
}

func readTitle(_ context.Context, s *browser.Session, args step.Args) step.Outcome {
	title := s.Title()
	if !strings.Contains(title, args.String("text")) {
		return step.Failf("title does not contain '%s':\n%s", args.String("text"), title)
	}
	return step.Pass()
}

func click(ctx context.Context, s *browser.Session, args step.Args) step.Outcome {
	if err := s.Click(ctx, args.String("text")); err != nil {
		return step.Failf("can not click on '%s'\n%v", args.String("text"), err)
	}
	return step.Pass()
}

func open(ctx context.Context, s *browser.Session, args step.Args) step.Outcome {
	u := args.URL("url")
	if err := s.Navigate(ctx, u.String()); err != nil {
		return step.Failf("could not open link: the URL is '%s'\n%v", u, err)
	}
	return step.Pass()
}

func typeInto(_ context.Context, s *browser.Session, args step.Args) step.Outcome {
	if err := s.Type(args.String("label"), args.String("text")); err != nil {
		return step.Failf("could not find input %s: %v", args.String("label"), err)
	}
	return step.Pass()
}

func urlContains(_ context.Context, s *browser.Session, args step.Args) step.Outcome {
	current := s.URL()
	if !strings.Contains(strings.ToLower(current), strings.ToLower(args.String("text"))) {
		return step.Failf("url does not contain %s: %s", args.String("text"), current)
	}
	return step.Pass()
}

func selectFile(_ context.Context, s *browser.Session, args step.Args) step.Outcome {
	if err := s.SetFile(args.String("filename")); err != nil {
		return step.Failf("could not select the file %s: %v", args.String("filename"), err)
	}
	return step.Pass()
}

func wait(ctx context.Context, args step.Args, _ step.Context) step.Outcome {
	t := time.NewTimer(time.Duration(args.Int("seconds")) * time.Second)
	defer t.Stop()
	select {
	case <-t.C:
		return step.Pass()
	case <-ctx.Done():
		return step.Failf("wait interrupted: %v", ctx.Err())
	}
}

func reload(ctx context.Context, s *browser.Session, _ step.Args) step.Outcome {
	if err := s.Reload(ctx); err != nil {
		return step.Failf("could not reload the page: %v", err)
	}
	return step.Pass()
}

func copyLink(_ context.Context, s *browser.Session, args step.Args) step.Outcome {
	if err := s.CopyLink(args.String("text")); err != nil {
		return step.Failf("could not copy the link '%s': %v", args.String("text"), err)
	}
	return step.Pass()
}
