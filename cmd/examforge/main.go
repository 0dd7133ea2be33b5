// Package main provides the examforge binary entry point.
// Examforge generates complete mock exams from reference documents
// using a generative AI API.
package main

import (
	"fmt"
	"os"
	"runtime"

	// Register API providers via init()
	_ "github.com/c360studio/examforge/llm/providers"

	"github.com/c360studio/examforge/commands"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
