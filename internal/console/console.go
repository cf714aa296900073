// Package console is the interactive prompt: the user types comma-separated
// asset IDs and each one is resolved in turn until "exit".
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/snapetech/assetfetch/internal/pipeline"
)

// Prompt is shown before each line of input.
const Prompt = "Enter asset IDs (comma-separated) or 'exit': "

// LineReader is the part of *readline.Instance the loop uses.
type LineReader interface {
	Readline() (string, error)
}

// Resolver is implemented by *pipeline.Resolver.
type Resolver interface {
	ResolveAll(ctx context.Context, ids []string) []pipeline.Result
}

// NewReader returns a readline instance with Prompt and in-memory history.
func NewReader() (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:          Prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
}

// ParseIDs splits a comma-separated line into trimmed, non-empty IDs.
func ParseIDs(line string) []string {
	var ids []string
	for _, part := range strings.Split(line, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Loop reads lines from rl until "exit", EOF, interrupt or ctx is done,
// resolving the IDs on each line and printing one line per result to out.
func Loop(ctx context.Context, rl LineReader, out io.Writer, r Resolver) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := rl.Readline()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if strings.EqualFold(line, "exit") {
			return nil
		}
		ids := ParseIDs(line)
		if len(ids) == 0 {
			continue
		}
		results := r.ResolveAll(ctx, ids)
		for _, res := range results {
			fmt.Fprintln(out, FormatResult(res))
		}
		fmt.Fprintf(out, "Done: %d of %d downloaded.\n", countOK(results), len(results))
	}
}

// FormatResult renders one result as a single console line.
func FormatResult(r pipeline.Result) string {
	if r.OK() {
		return fmt.Sprintf("%s: saved %s (owner %s, root place %s)", r.AssetID, r.FilePath, r.Creator, r.PlaceID)
	}
	return fmt.Sprintf("%s: failed at %s: %v", r.AssetID, r.Stage, r.Err)
}

func countOK(results []pipeline.Result) int {
	n := 0
	for _, r := range results {
		if r.OK() {
			n++
		}
	}
	return n
}

// Ask returns a config.AskFunc-compatible prompt backed by rl. Each call sets
// the prompt to label and restores Prompt afterwards.
func Ask(rl *readline.Instance) func(label string) (string, error) {
	return func(label string) (string, error) {
		rl.SetPrompt(label)
		defer rl.SetPrompt(Prompt)
		return rl.Readline()
	}
}
