package main

import "github.com/AdamLovattDevOps/slow-wifi/internal/cli"

func main() {
	cli.Execute()
}
