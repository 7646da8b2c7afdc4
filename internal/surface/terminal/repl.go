package terminal

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/astrachat/astra/internal/model/chat"
	"github.com/astrachat/astra/internal/service/pipeline"
	"github.com/astrachat/astra/internal/service/render"
)

const helpText = `commands:
  /new             start a new chat
  /list            list chats
  /switch <n>      open chat n
  /mode <m>        reply as text, audio or video
  /quit            exit
anything else is sent as a prompt`

// Controller is the subset of the conversation service the REPL drives.
type Controller interface {
	Send(ctx context.Context, prompt string) (pipeline.Result, error)
	NewChat(ctx context.Context) chat.Session
	SwitchIndex(n int) error
	SetMode(raw string) error
	Sessions() []render.SessionItem
}

// REPL reads commands from a terminal and forwards them to a Controller.
type REPL struct {
	ctl     Controller
	printer *Printer
	log     *zap.Logger
}

// NewREPL returns a REPL that reports command errors through printer.
func NewREPL(ctl Controller, printer *Printer, log *zap.Logger) *REPL {
	if log == nil {
		log = zap.NewNop()
	}
	return &REPL{ctl: ctl, printer: printer, log: log}
}

// Run consumes lines until EOF, /quit or ctx cancellation. Prompts are sent
// concurrently so the user can keep typing while a reply is pending; Run
// waits for in-flight sends before returning.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	done := make(chan struct{})
	defer close(done)

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := r.handle(ctx, line, &wg); quit {
				return nil
			}
		}
	}
}

func (r *REPL) handle(ctx context.Context, line string, wg *sync.WaitGroup) bool {
	cmd, err := ParseCommand(line)
	if err != nil {
		r.printer.Notice("%v", err)
		return false
	}

	switch cmd.Kind {
	case CmdQuit:
		return true
	case CmdHelp:
		r.printer.Notice("%s", helpText)
	case CmdNew:
		r.ctl.NewChat(ctx)
	case CmdList:
		r.printer.Render(render.Frame{Kind: render.FrameSessions, Sessions: r.ctl.Sessions()})
	case CmdSwitch:
		if err := r.ctl.SwitchIndex(cmd.Index); err != nil {
			r.printer.Notice("%v", err)
		}
	case CmdMode:
		if err := r.ctl.SetMode(cmd.Arg); err != nil {
			r.printer.Notice("%v", err)
		}
	case CmdPrompt:
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.ctl.Send(ctx, cmd.Arg); err != nil && !errors.Is(err, pipeline.ErrEmptyPrompt) {
				r.log.Warn("send failed", zap.Error(err))
			}
		}()
	}
	return false
}
