// Package main is the entry point for the hudstats CLI tool, which imports
// poker hand histories and computes per-player HUD statistics.
package main

import "github.com/pable/go-hud-stats/cmd"

func main() {
	cmd.Execute()
}
