// Command vecmod inspects module directories, registered index types and
// stored binary sets.
package main

import "github.com/hupe1980/vecmod/internal/cli"

func main() {
	cli.Execute()
}
