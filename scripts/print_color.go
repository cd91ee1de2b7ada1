package main

import "fmt"

// ANSI 顏色碼
type ansiColor string

const (
	colorYellow  ansiColor = "\033[33m"
	colorGreen   ansiColor = "\033[32m"
	colorRed     ansiColor = "\033[31m"
	colorDefault ansiColor = ""
	colorReset             = "\033[0m"
)

func fmtColor(color ansiColor, msg string) {
	if color == colorDefault {
		fmt.Println(msg)
		return
	}
	fmt.Printf("%s%s%s\n", color, msg, colorReset)
}

func PrintDefault(msg string) { fmtColor(colorDefault, msg) }
func PrintRed(msg string)     { fmtColor(colorRed, msg) }
func PrintGreen(msg string)   { fmtColor(colorGreen, msg) }
func PrintYellow(msg string)  { fmtColor(colorYellow, msg) }
