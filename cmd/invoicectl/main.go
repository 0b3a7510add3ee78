package main

import "github.com/garyjia/ap-invoice-intake/internal/cli"

func main() {
	cli.Execute()
}
