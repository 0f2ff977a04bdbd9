package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"voxtask/internal/config"
	"voxtask/internal/dialogue"
	"voxtask/internal/events"
)

// pullTimeout paces the event listener's idle retries.
const pullTimeout = 500 * time.Millisecond

type app struct {
	cfg        *config.Config
	log        *zap.Logger
	bus        *events.Bus
	controller *dialogue.Controller
}

// repl reads one utterance per line and prints streamed progress plus the
// controller's reply. "exit" or EOF ends the session.
func (a *app) repl(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "voxtask 已就绪，请输入指令（exit 退出）")

	scanner := bufio.NewScanner(in)
	for {
		if a.controller.Awaiting() {
			fmt.Fprint(out, "... ")
		} else {
			fmt.Fprint(out, ">>> ")
		}
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}

		text := strings.TrimSpace(scanner.Text())
		switch text {
		case "exit", "quit":
			fmt.Fprintln(out, "再见")
			return nil
		case "":
			reply := a.controller.HandleEmpty(dialogue.EmptyText)
			fmt.Fprintln(out, reply.Text)
			continue
		}

		reply := a.interact(ctx, out, text)
		fmt.Fprintln(out, reply.Text)
	}
	return scanner.Err()
}

// interact routes one utterance through the controller while draining the
// task's event stream. The handler runs in its own goroutine; this
// goroutine prints events until the stream terminates.
func (a *app) interact(ctx context.Context, out io.Writer, text string) dialogue.Reply {
	taskID := uuid.NewString()

	var reply dialogue.Reply
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if a.controller.Awaiting() {
			reply = a.controller.HandleFollowUp(gctx, taskID, text)
		} else {
			reply = a.controller.HandleNewQuery(gctx, taskID, text)
		}
		return nil
	})

	for ev := range a.bus.Listen(taskID, pullTimeout) {
		printEvent(out, ev)
	}
	if err := g.Wait(); err != nil {
		a.log.Error("interaction failed", zap.Error(err))
	}
	return reply
}

func printEvent(out io.Writer, ev events.Event) {
	switch ev.Kind {
	case events.KindThought:
		fmt.Fprintf(out, "  [思考] %s\n", ev.Thought)
	case events.KindAction:
		fmt.Fprintf(out, "  [执行] %s (%s)\n", ev.Tool, ev.Latency.Round(time.Millisecond))
		if ev.Observation != "" {
			fmt.Fprintf(out, "         %s\n", ev.Observation)
		}
	case events.KindMessage:
		fmt.Fprintf(out, "  [消息] %s\n", ev.Observation)
	case events.KindError:
		fmt.Fprintf(out, "  [失败] %s\n", ev.Observation)
	case events.KindEnd:
		if ev.Observation != "" {
			fmt.Fprintf(out, "  [完成] %s\n", ev.Observation)
		}
	}
}
