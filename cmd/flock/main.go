// Command flock runs the church management API and its admin tooling.
package main

import "github.com/flockhq/flock/internal/cli"

func main() {
	cli.Execute()
}
