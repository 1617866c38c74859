package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"propfirm/internal/theme"
)

func main() {
	var (
		themePath string
		outPath   string
	)
	flag.StringVar(&themePath, "theme", "", "path to theme.yaml (empty = built-in theme)")
	flag.StringVar(&outPath, "out", "theme.css", "output CSS file, - for stdout")
	flag.Parse()

	th, err := theme.Load(themePath)
	if err != nil {
		log.Fatalf("theme: %v", err)
	}

	out := os.Stdout
	if outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			log.Fatalf("create out: %v", err)
		}
		defer f.Close()
		out = f
	}
	bw := bufio.NewWriter(out)
	if _, err := bw.WriteString(th.CSS()); err != nil {
		log.Fatalf("write css: %v", err)
	}
	if err := bw.Flush(); err != nil {
		log.Fatalf("flush: %v", err)
	}

	fmt.Fprintf(os.Stderr, "fonts: %s\n", th.FontsURL())
	fmt.Fprintf(os.Stderr, "animation: %s\n", th.Marquee().Name)
}
