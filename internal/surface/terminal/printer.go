package terminal

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/astrachat/astra/internal/model/chat"
	"github.com/astrachat/astra/internal/service/render"
)

// Printer renders frames as coloured lines on a terminal.
type Printer struct {
	mu  sync.Mutex
	out io.Writer

	user    *color.Color
	bot     *color.Color
	media   *color.Color
	muted   *color.Color
	active  *color.Color
	warning *color.Color

	pending render.PendingView
}

// NewPrinter returns a printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{
		out:     out,
		user:    color.New(color.FgCyan, color.Bold),
		bot:     color.New(color.FgGreen),
		media:   color.New(color.FgMagenta),
		muted:   color.New(color.FgHiBlack),
		active:  color.New(color.FgYellow, color.Bold),
		warning: color.New(color.FgRed),
	}
}

// Render implements conversation.Surface.
func (p *Printer) Render(frame render.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch frame.Kind {
	case render.FrameHistory:
		p.pending = render.ViewNone
		p.muted.Fprintln(p.out, "──────── history ────────")
		if len(frame.Instructions) == 0 {
			p.muted.Fprintln(p.out, "(empty)")
		}
		for _, in := range frame.Instructions {
			p.printInstruction(in)
		}
	case render.FrameMessage:
		if frame.Instruction != nil {
			p.printInstruction(*frame.Instruction)
		}
	case render.FramePending:
		p.printPending(frame.Pending)
	case render.FrameSessions:
		p.printSessions(frame.Sessions)
	case render.FrameMode:
		p.muted.Fprintf(p.out, "mode: %s\n", frame.Mode)
	}
}

// Notice prints an out-of-band message such as a command error.
func (p *Printer) Notice(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.warning.Fprintf(p.out, format+"\n", args...)
}

func (p *Printer) printInstruction(in render.Instruction) {
	label, c := "bot", p.bot
	if in.Sender == chat.SenderUser {
		label, c = "you", p.user
	}

	prefix := fmt.Sprintf("[%s] %s:", in.Time, label)
	switch in.Type {
	case chat.TypeAudio:
		c.Fprint(p.out, prefix)
		p.media.Fprintf(p.out, " [audio] %s\n", in.Content)
	case chat.TypeVideo:
		c.Fprint(p.out, prefix)
		p.media.Fprintf(p.out, " [video] %s\n", in.Content)
	default:
		c.Fprintf(p.out, "%s %s\n", prefix, in.Content)
	}
}

func (p *Printer) printPending(view render.PendingView) {
	if view == p.pending {
		return
	}
	p.pending = view
	switch view {
	case render.ViewTypingDots:
		p.muted.Fprintln(p.out, "bot is typing ...")
	case render.ViewGenerationOverlay:
		p.active.Fprintln(p.out, "generating video, this can take a while ...")
	}
}

func (p *Printer) printSessions(items []render.SessionItem) {
	p.muted.Fprintln(p.out, "──────── chats ────────")
	for i, item := range items {
		line := fmt.Sprintf("%2d. %s  (%s)", i+1, item.Title, item.Meta)
		if item.Active {
			p.active.Fprintf(p.out, "* %s\n", line)
			continue
		}
		fmt.Fprintf(p.out, "  %s\n", line)
	}
}
