// Command cheesefinder searches a cheese catalogue from the terminal.
package main

import "cheesefinder/internal/cli"

func main() {
	cli.Execute()
}
