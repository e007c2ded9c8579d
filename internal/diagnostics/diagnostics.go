// Package diagnostics prints human-readable CLI output: status lines and
// the route table of an initialized application.
package diagnostics

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/toyz/mininest/pkg/nest"
)

// Level controls how much is printed
type Level int

const (
	Silent Level = iota
	Errors
	Normal
	Verbose
)

// Reporter writes coloured diagnostics
type Reporter struct {
	level  Level
	out    io.Writer
	errOut io.Writer
	colors bool

	title   *color.Color
	success *color.Color
	failure *color.Color
	muted   *color.Color
}

// New creates a reporter on stdout and stderr
func New(level Level) *Reporter {
	return NewWithWriters(level, os.Stdout, os.Stderr, shouldUseColors())
}

// NewWithWriters creates a reporter on explicit writers
func NewWithWriters(level Level, out, errOut io.Writer, colors bool) *Reporter {
	r := &Reporter{
		level:   level,
		out:     out,
		errOut:  errOut,
		colors:  colors,
		title:   color.New(color.FgCyan, color.Bold),
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed),
		muted:   color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{r.title, r.success, r.failure, r.muted} {
		r.toggle(c)
	}
	return r
}

func (r *Reporter) toggle(c *color.Color) {
	if r.colors {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
}

func (r *Reporter) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	r.toggle(c)
	return c
}

// Header prints the banner line
func (r *Reporter) Header(message string) {
	if r.level >= Normal {
		r.title.Fprintf(r.out, "mininest: %s\n", message)
	}
}

// Success prints a line with a check mark
func (r *Reporter) Success(format string, args ...any) {
	if r.level >= Normal {
		r.success.Fprint(r.out, "✓ ")
		fmt.Fprintf(r.out, format+"\n", args...)
	}
}

// Error prints to the error writer unless silent
func (r *Reporter) Error(format string, args ...any) {
	if r.level >= Errors {
		r.failure.Fprint(r.errOut, "[ERROR] ")
		fmt.Fprintf(r.errOut, format+"\n", args...)
	}
}

// Verbose prints only in verbose mode
func (r *Reporter) Verbose(format string, args ...any) {
	if r.level >= Verbose {
		r.muted.Fprintf(r.out, format+"\n", args...)
	}
}

var methodColors = map[string]color.Attribute{
	"GET":    color.FgBlue,
	"POST":   color.FgGreen,
	"PUT":    color.FgYellow,
	"PATCH":  color.FgYellow,
	"DELETE": color.FgRed,
}

// Routes prints the route table grouped by controller, controllers sorted
// by name and routes in binding order
func (r *Reporter) Routes(routes nest.RouteTable) {
	if r.level < Normal {
		return
	}

	var names []string
	seen := make(map[string]bool)
	for _, route := range routes {
		if !seen[route.ControllerName] {
			seen[route.ControllerName] = true
			names = append(names, route.ControllerName)
		}
	}
	sort.Strings(names)

	width := 0
	for _, route := range routes {
		width = max(width, len(route.Method))
	}

	for _, name := range names {
		fmt.Fprintf(r.out, "\n[%s]\n", name)
		for _, route := range routes.ByController(name) {
			method := r.paint(methodAttr(route.Method))
			method.Fprint(r.out, "  "+route.Method+strings.Repeat(" ", width-len(route.Method)))
			fmt.Fprintf(r.out, " %s ", route.Path)
			r.muted.Fprintf(r.out, "-> %s\n", route.HandlerName)
		}
	}
	fmt.Fprintf(r.out, "\n%d routes\n", len(routes))
}

func methodAttr(method string) color.Attribute {
	if attr, ok := methodColors[method]; ok {
		return attr
	}
	return color.FgMagenta
}

func shouldUseColors() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	term := os.Getenv("TERM")
	return term != "" && term != "dumb"
}
