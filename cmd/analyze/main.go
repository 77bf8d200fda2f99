// Command analyze prints quick, human-readable summaries of level files:
// dimensions, entity counts, exits and hackable entities, with how hard each
// is for the player to reach.
//
//	analyze [-dir levels] [FILE...]
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/wricardo/mcp-training/gridhack/game/engine"
	"github.com/wricardo/mcp-training/gridhack/validate"
)

func main() {
	dir := flag.String("dir", "levels", "levels directory used when no files are given")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		var err error
		if files, err = validate.LevelFiles(*dir); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	failed := 0
	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", file)
		if err := analyzeLevel(os.Stdout, file); err != nil {
			fmt.Printf("Error: %v\n", err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func analyzeLevel(w io.Writer, path string) error {
	cfg, err := engine.LoadLevelConfig(path)
	if err != nil {
		return err
	}
	summary, err := validate.Summarize(cfg)
	if err != nil {
		return err
	}
	summary.Print(w)
	return nil
}
