// Command semgcal runs guided sEMG calibration sessions.
package main

import "github.com/semg-lab/semgcal/internal/cli"

func main() {
	cli.Execute()
}
