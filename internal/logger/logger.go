package logger

import (
	"fmt"
	"time"
)

// ANSI color codes for terminal output.
const (
	colReset  = "\033[0m"
	colRed    = "\033[31m"
	colGreen  = "\033[32m"
	colYellow = "\033[33m"
	colCyan   = "\033[36m"
	colGray   = "\033[90m"
	colBold   = "\033[1m"
)

func stamp() string {
	return time.Now().Format("15:04:05")
}

func line(color, level, tag, msg string) {
	fmt.Printf("%s%s%s %s%-5s%s %s[%s]%s %s\n",
		colGray, stamp(), colReset,
		color, level, colReset,
		colBold, tag, colReset,
		msg)
}

// Info logs a neutral message with a component tag.
func Info(tag, msg string) {
	line(colCyan, "INFO", tag, msg)
}

// Success logs a completed operation.
func Success(tag, msg string) {
	line(colGreen, "OK", tag, msg)
}

// Warn logs a recoverable anomaly.
func Warn(tag, msg string) {
	line(colYellow, "WARN", tag, msg)
}

// Error logs a failure.
func Error(tag, msg string) {
	line(colRed, "ERROR", tag, msg)
}

// Banner prints the startup banner with the build version.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	fmt.Printf("%s%s", colCyan, colBold)
	fmt.Println("  ___ ___   ___ _ _                    ")
	fmt.Println(" / __| __| | __| (_)_ __ _ __  ___ _ _ ")
	fmt.Println("| (_ | _|  | _|| | | '_ \\ '_ \\/ -_) '_|")
	fmt.Println(" \\___|___| |_| |_|_| .__/ .__/\\___|_|  ")
	fmt.Println("                   |_|  |_|            ")
	fmt.Printf("%s", colReset)
	fmt.Printf("%sGrand Exchange flip tracker %s%s\n\n", colGray, version, colReset)
}

// Section prints a named divider for grouped startup stats.
func Section(title string) {
	fmt.Printf("\n%s── %s %s%s\n", colBold, title, "──────────────────────", colReset)
}

// Stats prints one aligned key/value stat line under a Section.
func Stats(key string, value int) {
	fmt.Printf("   %s%-14s%s %d\n", colGray, key, colReset, value)
}

// Server prints the listen address once the HTTP server is up.
func Server(addr string) {
	fmt.Printf("\n%s➜ Listening on http://%s%s\n\n", colGreen, addr, colReset)
}
