// Package main provides an exec link helper that drives a microcontroller
// hand over a serial port. The controller receives one ASCII line per
// command: five whole-degree positions in wire order, comma separated.
//
// The address is the port, optionally with a baud rate: /dev/ttyUSB0@57600.
// Run with -list to print the available ports.
//
// The exec link starts the helper once per command, so the port is opened
// for every command. DTR and RTS are held low at open, which keeps most
// Arduino and ESP32 boards from resetting. Boards whose USB bridge pulses
// DTR regardless will still reset on each command; drive those with the
// http or ws link from firmware that stays connected.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"go.bug.st/serial"
)

const defaultBaud = 115200

// Request represents the input from the exec link.
type Request struct {
	Address string    `json:"address"`
	Angles  []float64 `json:"angles"`
}

// Response represents the output to the exec link.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func main() {
	list := flag.Bool("list", false, "list serial ports and exit")
	flag.Parse()

	if *list {
		ports, err := serial.GetPortsList()
		if err != nil {
			fmt.Fprintf(os.Stderr, "list ports: %v\n", err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	// Read request from stdin
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if err := send(req); err != nil {
		writeErrorResponse(err.Error())
		return
	}
	writeSuccessResponse()
}

func send(req Request) error {
	line, err := formatLine(req.Angles)
	if err != nil {
		return err
	}
	port, baud, err := parseAddress(req.Address)
	if err != nil {
		return err
	}

	p, err := serial.Open(port, portMode(baud))
	if err != nil {
		return fmt.Errorf("open %s: %w", port, err)
	}
	defer p.Close()

	if _, err := p.Write([]byte(line)); err != nil {
		return fmt.Errorf("write %s: %w", port, err)
	}
	return nil
}

// portMode opens the port with the modem lines low so that auto-reset
// circuits wired to DTR/RTS are not triggered.
func portMode(baud int) *serial.Mode {
	return &serial.Mode{
		BaudRate:          baud,
		InitialStatusBits: &serial.ModemOutputBits{DTR: false, RTS: false},
	}
}

// parseAddress splits "port[@baud]".
func parseAddress(addr string) (string, int, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", 0, fmt.Errorf("address is required")
	}

	port, baudText, ok := strings.Cut(addr, "@")
	if !ok {
		return port, defaultBaud, nil
	}
	baud, err := strconv.Atoi(baudText)
	if err != nil || baud <= 0 {
		return "", 0, fmt.Errorf("invalid baud rate %q", baudText)
	}
	return port, baud, nil
}

// formatLine renders the positions as "i,r,m,t,p\n" in whole degrees.
func formatLine(angles []float64) (string, error) {
	if len(angles) != 5 {
		return "", fmt.Errorf("expected 5 angles, got %d", len(angles))
	}
	fields := make([]string, len(angles))
	for i, a := range angles {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return "", fmt.Errorf("angle %d is not a number", i+1)
		}
		fields[i] = strconv.Itoa(int(math.Round(a)))
	}
	return strings.Join(fields, ",") + "\n", nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}
