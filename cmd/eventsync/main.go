package main

import (
	"os"

	"github.com/shareef6907/BahrainNights-sub013/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
