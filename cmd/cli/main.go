// sensortail - Live sensor log dashboard
//
// sensortail reads the last line of a temperature and humidity log and serves
// it as JSON and as a live chart.
package main

import (
	"os"

	"github.com/ccollicutt/sensortail/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
