package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	ConfigPath string `short:"c" long:"config" description:"Config file (default ~/.mudra/config.toml)"`

	Run      RunCommand      `command:"run" description:"Choose a mode, then drive the hand live or replay a session"`
	Live     LiveCommand     `command:"live" description:"Drive the hand from the camera and record a session"`
	Replay   ReplayCommand   `command:"replay" description:"Replay a recorded session"`
	Sessions SessionsCommand `command:"sessions" description:"Inspect recorded sessions"`
	Init     InitCommand     `command:"init" description:"Write the default config file"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "Mudra - mirror a hand seen by the camera onto a five-finger robotic hand"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
