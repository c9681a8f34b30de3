package main

import (
	"os"

	"github.com/GoAuthCore/GoAuthCore/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
