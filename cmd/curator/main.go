package main

import (
	"os"

	"stride.fit/curator/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
