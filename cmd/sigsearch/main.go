// Command sigsearch is the one-shot selector preimage miner: give it a
// 4-byte target and a signature shape, and it races CPU workers over the
// candidate space until one hits.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/Amr-9/SigHunter/internal/ui"
	"github.com/Amr-9/SigHunter/pkg/search"
	"github.com/Amr-9/SigHunter/pkg/selector"
)

const (
	version    = "0.1"
	outputFile = "signature.txt"
	updateRate = 33 * time.Millisecond
)

var config struct {
	Target     string        `long:"target" env:"SIGSEARCH_TARGET" description:"target selector, 0x + 8 hex (prompts when omitted)"`
	Prefix     string        `long:"prefix" env:"SIGSEARCH_PREFIX" description:"fixed signature prefix"`
	InputTypes string        `long:"types" env:"SIGSEARCH_TYPES" description:"comma-joined input type list"`
	MaxLen     int           `long:"max-len" env:"SIGSEARCH_MAX_LEN" description:"maximum candidate length" default:"6"`
	Workers    int           `long:"workers" env:"SIGSEARCH_WORKERS" description:"worker count, 0 = all cores"`
	Random     bool          `long:"random" env:"SIGSEARCH_RANDOM" description:"sample candidates randomly instead of enumerating"`
	Budget     uint64        `long:"budget" env:"SIGSEARCH_BUDGET" description:"max candidates to try, 0 = full space"`
	Timeout    time.Duration `long:"timeout" env:"SIGSEARCH_TIMEOUT" description:"wall-clock budget, 0 = none"`
}

func main() {
	if _, err := flags.ParseArgs(&config, os.Args); err != nil {
		os.Exit(1)
	}

	interactive := config.Target == ""

	ui.ClearScreen()
	ui.PrintWelcomeBanner(version)

	for {
		target, prefix, inputTypes, ok := resolveTask(interactive)
		if !ok {
			os.Exit(1)
		}

		if !runSearch(target, prefix, inputTypes) {
			if interactive {
				ui.WaitForExit()
			}
			return
		}
		if !interactive || !ui.AskToContinue() {
			return
		}
		fmt.Println()
	}
}

// resolveTask takes the task from flags, or prompts for it in interactive
// mode. The bool is false on invalid non-interactive input.
func resolveTask(interactive bool) (selector.Selector, string, string, bool) {
	if interactive {
		target := ui.GetTargetFromUser()
		prefix, inputTypes := ui.GetSignatureShapeFromUser()
		return target, prefix, inputTypes, true
	}

	target, err := selector.Parse(config.Target)
	if err != nil {
		fmt.Printf("    %s✗ %v%s\n", ui.ColorRed, err, ui.ColorReset)
		return selector.Selector{}, "", "", false
	}
	if err := selector.ValidateInputTypes(config.InputTypes); err != nil {
		fmt.Printf("    %s✗ %v%s\n", ui.ColorRed, err, ui.ColorReset)
		return selector.Selector{}, "", "", false
	}
	return target, config.Prefix, config.InputTypes, true
}

// runSearch drives one search to completion. Returns false when the
// process should exit immediately (error or interrupt without continue).
func runSearch(target selector.Selector, prefix, inputTypes string) bool {
	strategy := search.Sequential
	if config.Random {
		strategy = search.Random
	}
	task := &search.Task{
		Target:        target,
		Prefix:        prefix,
		InputTypes:    inputTypes,
		MaxLen:        config.MaxLen,
		Strategy:      strategy,
		MaxCandidates: config.Budget,
		Seed:          time.Now().UnixNano(),
		Workers:       config.Workers,
	}

	engine := search.NewCPUEngine(config.Workers, search.MustAlphabet(search.DefaultAlphabet), nil)
	space, err := engine.Alphabet().SpaceSize(task.MaxLen)
	if err != nil {
		fmt.Printf("    %s✗ %v%s\n", ui.ColorRed, err, ui.ColorReset)
		return false
	}
	ui.PrintSearchInfo(task, space)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if config.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		cancel()
	}()

	type outcome struct {
		res search.Result
		err error
	}
	resultCh := make(chan outcome, 1)
	startTime := time.Now()
	go func() {
		res, err := engine.Search(ctx, task)
		resultCh <- outcome{res, err}
	}()

	ticker := time.NewTicker(updateRate)
	defer ticker.Stop()
	frame := 0

	for {
		select {
		case out := <-resultCh:
			elapsed := time.Since(startTime)
			ui.ClearLine()
			if out.err != nil {
				fmt.Printf("\n    %s✗ Error: %v%s\n", ui.ColorRed, out.err, ui.ColorReset)
				return false
			}
			switch out.res.Outcome {
			case search.Found:
				ui.PrintSuccess(out.res, target, elapsed)
				saveResult(out.res, target, elapsed)
			default:
				ui.PrintNoSolution(out.res, elapsed)
			}
			return true

		case <-ticker.C:
			ui.PrintProgress(engine.Stats(), space, frame)
			frame++
		}
	}
}

// saveResult writes the found signature to a file
func saveResult(res search.Result, target selector.Selector, elapsed time.Duration) {
	content := fmt.Sprintf(`Selector Preimage
=================

Selector:   %s
Signature:  %s
Identifier: %q

Statistics:
  Time:       %s
  Candidates: %s

Generated: %s
`, target.Hex(), res.Signature, res.Candidate,
		ui.FormatDuration(elapsed), ui.FormatNumber(res.Attempts),
		time.Now().Format("2006-01-02 15:04:05"))

	if err := os.WriteFile(outputFile, []byte(content), 0600); err != nil {
		fmt.Printf("    %s⚠ Save failed: %v%s\n", ui.ColorYellow, err, ui.ColorReset)
	}
}
